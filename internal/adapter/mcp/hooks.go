package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/guillermoBallester/fbmcp/internal/core/port"
)

// toolCallLogger logs every tool call with its duration and, for failed
// calls, the diagnostic kind carried in the result. When auditLogger is set
// each call is also queued for the audit trail.
func toolCallLogger(logger *slog.Logger, auditLogger port.AuditLogger) server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			callID := uuid.NewString()
			start := time.Now()

			result, err := next(ctx, request)
			duration := time.Since(start)

			attrs := []slog.Attr{
				slog.String("rpc.method", string(mcp.MethodToolsCall)),
				slog.String("mcp.tool", request.Params.Name),
				slog.String("mcp.call_id", callID),
				slog.Duration("duration", duration),
			}
			entry := port.AuditEntry{
				Time:       start.UTC(),
				CallID:     callID,
				Tool:       request.Params.Name,
				Input:      auditInput(request),
				DurationMs: duration.Milliseconds(),
			}
			if auth := port.AuthFromContext(ctx); auth != nil {
				entry.KeyID = auth.KeyID
				attrs = append(attrs, slog.String("auth.key", auth.KeyID))
			}

			level := slog.LevelInfo
			switch {
			case err != nil:
				level = slog.LevelError
				entry.IsError, entry.ErrorKind = true, port.KindOf(err)
				attrs = append(attrs, slog.Bool("error", true), slog.String("error.message", err.Error()))
			case result != nil && result.IsError:
				level = slog.LevelWarn
				entry.IsError, entry.ErrorKind = true, port.DiagnosticKind(resultKind(result))
				attrs = append(attrs, slog.Bool("error", true), slog.String("error.type", string(entry.ErrorKind)))
			default:
				attrs = append(attrs, slog.Bool("error", false))
			}
			logger.LogAttrs(ctx, level, "tool call", attrs...)

			if auditLogger != nil {
				auditLogger.Log(entry)
			}
			return result, err
		}
	}
}

// auditInput is the statement or table a call operated on. Parameter
// values are left out.
func auditInput(request mcp.CallToolRequest) string {
	args := request.GetArguments()
	if sql, ok := args["sql"].(string); ok {
		return sql
	}
	if table, ok := args["table"].(string); ok {
		return table
	}
	return ""
}

// resultKind extracts the diagnostic kind from an isError result.
func resultKind(result *mcp.CallToolResult) string {
	for _, c := range result.Content {
		text, ok := mcp.AsTextContent(c)
		if !ok {
			continue
		}
		var report port.DiagnosticReport
		if json.Unmarshal([]byte(text.Text), &report) == nil && report.Kind != "" {
			return string(report.Kind)
		}
	}
	return string(port.KindUnknown)
}

func protocolHooks(logger *slog.Logger) *server.Hooks {
	hooks := &server.Hooks{}

	hooks.AddOnRegisterSession(func(ctx context.Context, session server.ClientSession) {
		logger.Debug("session registered", "mcp.session", session.SessionID())
	})

	hooks.AddOnError(func(ctx context.Context, id any, method mcp.MCPMethod, message any, err error) {
		attrs := []slog.Attr{
			slog.String("rpc.method", string(method)),
			slog.String("error.message", err.Error()),
		}
		if req, ok := message.(*mcp.CallToolRequest); ok {
			attrs = append(attrs, slog.String("mcp.tool", req.Params.Name))
		}
		logger.LogAttrs(ctx, slog.LevelError, "request failed", attrs...)
	})

	return hooks
}
