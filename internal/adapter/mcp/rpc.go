package mcp

import (
	"encoding/json"

	"github.com/guillermoBallester/fbmcp/internal/core/port"
)

// JSON-RPC error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

const jsonrpcVersion = "2.0"

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// isNotification reports whether the request expects no response.
func (r rpcRequest) isNotification() bool {
	return len(r.ID) == 0
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result"`
}

type rpcErrorResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Error   rpcError        `json:"error"`
}

type rpcError struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    *errorData `json:"data,omitempty"`
}

// errorData carries the diagnostic kind on every JSON-RPC error.
type errorData struct {
	Kind        port.DiagnosticKind `json:"kind"`
	Message     string              `json:"message,omitempty"`
	Hint        string              `json:"hint,omitempty"`
	Remediation []string            `json:"remediation,omitempty"`
	Detail      json.RawMessage     `json:"detail,omitempty"`
}

func nullID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}

func newResult(id json.RawMessage, result any) *rpcResponse {
	return &rpcResponse{JSONRPC: jsonrpcVersion, ID: nullID(id), Result: result}
}

func newError(id json.RawMessage, code int, message string, report *port.DiagnosticReport) *rpcErrorResponse {
	resp := &rpcErrorResponse{
		JSONRPC: jsonrpcVersion,
		ID:      nullID(id),
		Error:   rpcError{Code: code, Message: message},
	}
	if report != nil {
		resp.Error.Data = &errorData{
			Kind:        report.Kind,
			Message:     report.Message,
			Hint:        report.Hint,
			Remediation: report.Remediation,
		}
	}
	return resp
}

// kindForCode tags protocol errors raised by the MCP library.
func kindForCode(code int) port.DiagnosticKind {
	switch code {
	case codeParseError, codeInvalidRequest, codeInvalidParams:
		return port.KindValidation
	case codeMethodNotFound:
		return port.KindNotFound
	}
	return port.KindUnknown
}

// codeForKind picks the JSON-RPC code for a failure raised by the gateway.
func codeForKind(kind port.DiagnosticKind) int {
	switch kind {
	case port.KindValidation, port.KindNotFound:
		return codeInvalidParams
	}
	return codeInternalError
}
