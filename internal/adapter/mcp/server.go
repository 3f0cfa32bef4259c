package mcp

import (
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/guillermoBallester/fbmcp/internal/core/port"
	"github.com/guillermoBallester/fbmcp/internal/core/service"
	"github.com/guillermoBallester/fbmcp/internal/i18n"
)

// Deps are the collaborators of the gateway.
type Deps struct {
	Name      string
	Version   string
	Transport string
	Started   time.Time

	Catalog  *i18n.Catalog
	Database port.Database
	Explorer *service.ExplorerService
	Query    *service.QueryService
	Prompts  *service.PromptService
	Guidance *service.Guidance
	Logger   *slog.Logger

	// Audit is optional.
	Audit port.AuditLogger
}

// NewGateway builds the MCP server with every tool registered and wraps it
// in a Gateway.
func NewGateway(d Deps) *Gateway {
	if d.Started.IsZero() {
		d.Started = time.Now()
	}

	s := server.NewMCPServer(
		d.Name,
		d.Version,
		server.WithInstructions(d.Catalog.Get("server.instructions")),
		server.WithToolCapabilities(false),
		server.WithPromptCapabilities(false),
		server.WithRecovery(),
		server.WithHooks(protocolHooks(d.Logger)),
		server.WithToolHandlerMiddleware(toolCallLogger(d.Logger, d.Audit)),
	)

	registerTools(s, d)

	return &Gateway{server: s, prompts: d.Prompts, logger: d.Logger}
}
