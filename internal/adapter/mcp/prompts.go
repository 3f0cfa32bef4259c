package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/guillermoBallester/fbmcp/internal/core/port"
)

func toMCPPrompt(spec port.PromptSpec) mcp.Prompt {
	opts := []mcp.PromptOption{mcp.WithPromptDescription(spec.Description)}
	for _, arg := range spec.Arguments {
		argOpts := []mcp.ArgumentOption{mcp.ArgumentDescription(arg.Description)}
		if arg.Required {
			argOpts = append(argOpts, mcp.RequiredArgument())
		}
		opts = append(opts, mcp.WithArgument(arg.Name, argOpts...))
	}
	return mcp.NewPrompt(spec.Name, opts...)
}

// listPrompts never fails: schema prompts are dropped when the database
// cannot be reached.
func (g *Gateway) listPrompts(ctx context.Context, req rpcRequest) mcp.JSONRPCMessage {
	if req.isNotification() {
		return nil
	}
	specs := g.prompts.List(ctx)
	result := mcp.ListPromptsResult{Prompts: make([]mcp.Prompt, 0, len(specs))}
	for _, spec := range specs {
		result.Prompts = append(result.Prompts, toMCPPrompt(spec))
	}
	return newResult(req.ID, result)
}

func (g *Gateway) getPrompt(ctx context.Context, req rpcRequest) mcp.JSONRPCMessage {
	if req.isNotification() {
		return nil
	}
	var params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
		return newError(req.ID, codeInvalidParams, "invalid params",
			port.NewDiagnostic(port.KindValidation, "prompts/get requires a prompt name"))
	}

	args := make(map[string]string, len(params.Arguments))
	for k, v := range params.Arguments {
		if v != nil {
			args[k] = fmt.Sprint(v)
		}
	}

	rendered, err := g.prompts.Render(ctx, params.Name, args)
	if err != nil {
		report := port.AsDiagnostic(err)
		g.logger.Warn("prompt render failed", "mcp.prompt", params.Name, "error.type", string(report.Kind), "error", report.Message)
		return newError(req.ID, codeForKind(report.Kind), report.Message, report)
	}

	return newResult(req.ID, mcp.GetPromptResult{
		Description: rendered.Description,
		Messages: []mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(rendered.Text)),
		},
	})
}
