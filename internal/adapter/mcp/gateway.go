package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/guillermoBallester/fbmcp/internal/core/port"
	"github.com/guillermoBallester/fbmcp/internal/core/service"
)

// Gateway is the single entry point used by the transports. It routes
// prompts itself, screens tool names against the catalog and delegates the
// rest of the protocol to the MCP library.
type Gateway struct {
	server  *server.MCPServer
	prompts *service.PromptService
	logger  *slog.Logger
}

// HandleMessage processes one JSON-RPC message and returns the response, or
// nil for notifications.
func (g *Gateway) HandleMessage(ctx context.Context, raw json.RawMessage) (resp mcp.JSONRPCMessage) {
	var req rpcRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		if !json.Valid(raw) {
			return newError(nil, codeParseError, "parse error", port.NewDiagnostic(port.KindValidation, "%s", err))
		}
		return newError(nil, codeInvalidRequest, "invalid request", port.NewDiagnostic(port.KindValidation, "%s", err))
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("panic while handling request",
				"rpc.method", req.Method,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			resp = newError(req.ID, codeInternalError, "internal error",
				port.NewDiagnostic(port.KindUnknown, "internal error while handling %s", req.Method))
		}
		g.logger.Debug("rpc request", "rpc.method", req.Method, "duration", time.Since(start))
	}()

	switch req.Method {
	case string(mcp.MethodToolsCall):
		args, errResp := g.screenTool(req)
		if errResp != nil {
			return errResp
		}
		ctx = withRawArguments(ctx, args)
	case string(mcp.MethodPromptsList):
		return g.listPrompts(ctx, req)
	case string(mcp.MethodPromptsGet):
		return g.getPrompt(ctx, req)
	}
	return g.delegate(ctx, req, raw)
}

// screenTool rejects unknown tool names before any handler runs and returns
// the undecoded arguments of known ones.
func (g *Gateway) screenTool(req rpcRequest) (json.RawMessage, mcp.JSONRPCMessage) {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
		return nil, newError(req.ID, codeInvalidParams, "invalid params",
			port.NewDiagnostic(port.KindValidation, "tools/call requires a tool name"))
	}
	if !isTool(params.Name) {
		return nil, newError(req.ID, codeInvalidParams, "unknown tool: "+params.Name,
			port.NewDiagnostic(port.KindValidation, "unknown tool %q", params.Name))
	}
	return params.Arguments, nil
}

// delegate hands the message to the MCP library and tags any JSON-RPC
// error it produces with a diagnostic kind.
func (g *Gateway) delegate(ctx context.Context, req rpcRequest, raw json.RawMessage) mcp.JSONRPCMessage {
	out := g.server.HandleMessage(ctx, raw)
	if out == nil {
		return nil
	}
	data, err := json.Marshal(out)
	if err != nil {
		return newError(req.ID, codeInternalError, "internal error",
			port.NewDiagnostic(port.KindUnknown, "encoding response: %s", err))
	}

	var reply struct {
		ID    json.RawMessage `json:"id"`
		Error *struct {
			Code    int             `json:"code"`
			Message string          `json:"message"`
			Data    json.RawMessage `json:"data,omitempty"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &reply); err != nil || reply.Error == nil {
		return json.RawMessage(data)
	}

	id := reply.ID
	if len(id) == 0 || string(id) == "null" {
		id = req.ID
	}
	resp := &rpcErrorResponse{
		JSONRPC: jsonrpcVersion,
		ID:      nullID(id),
		Error: rpcError{
			Code:    reply.Error.Code,
			Message: reply.Error.Message,
			Data:    &errorData{Kind: kindForCode(reply.Error.Code), Detail: reply.Error.Data},
		},
	}
	return resp
}

// Session registers an in-process client session and returns a context
// bound to it, together with a release func.
func (g *Gateway) Session(ctx context.Context, id string) (context.Context, func(), error) {
	session := server.NewInProcessSession(id, nil)
	if err := g.server.RegisterSession(ctx, session); err != nil {
		return ctx, func() {}, err
	}
	release := func() { g.server.UnregisterSession(ctx, id) }
	return g.server.WithContext(ctx, session), release, nil
}
