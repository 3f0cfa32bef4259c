package mcp

import (
	"context"
	"runtime"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/guillermoBallester/fbmcp/internal/core/port"
	"github.com/guillermoBallester/fbmcp/internal/core/service"
	"github.com/guillermoBallester/fbmcp/internal/i18n"
)

const statusTablePreview = 10

type serverInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Transport string `json:"transport"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

type promptStatus struct {
	Static  int      `json:"static"`
	Dynamic int      `json:"dynamic"`
	Tables  []string `json:"tables"`
}

type serverStatus struct {
	Server          serverInfo             `json:"server"`
	I18n            i18n.Status            `json:"i18n"`
	Guidance        service.GuidanceStatus `json:"default_prompt"`
	Adapter         port.AdapterStatus     `json:"adapter"`
	Connection      *port.ConnectionStatus `json:"connection"`
	Features        map[string]bool        `json:"features"`
	Prompts         promptStatus           `json:"prompts"`
	Recommendations []string               `json:"recommendations"`
}

// buildStatus never fails. Tables are only listed when the live connection
// test succeeded.
func buildStatus(ctx context.Context, d Deps) serverStatus {
	adapter := d.Database.Status()
	conn := d.Database.TestConnection(ctx)
	guidance := d.Guidance.Status()

	st := serverStatus{
		Server: serverInfo{
			Name:      d.Name,
			Version:   d.Version,
			Transport: d.Transport,
			GoVersion: runtime.Version(),
			Uptime:    time.Since(d.Started).Round(time.Second).String(),
		},
		I18n:       d.Catalog.Status(),
		Guidance:   guidance,
		Adapter:    adapter,
		Connection: conn,
		Features: map[string]bool{
			"sql_analysis":     true,
			"dynamic_prompts":  conn.Connected,
			"default_guidance": guidance.Enabled,
			"parameterized":    true,
		},
		Prompts: promptStatus{Static: len(d.Prompts.Static()), Tables: []string{}},
	}

	if conn.Connected {
		tables, err := d.Explorer.ListTables(ctx)
		if err != nil {
			d.Logger.Warn("server status: listing tables failed", "error", err)
		} else {
			st.Prompts.Dynamic = len(tables)
			if len(tables) > statusTablePreview {
				tables = tables[:statusTablePreview]
			}
			st.Prompts.Tables = tables
		}
	}

	st.Recommendations = recommendations(adapter, conn, st)
	return st
}

func recommendations(adapter port.AdapterStatus, conn *port.ConnectionStatus, st serverStatus) []string {
	recs := []string{}
	if !adapter.DriverLoaded {
		recs = append(recs, "Firebird driver is not registered; rebuild the server with the firebirdsql driver")
	}
	if !conn.Connected && conn.Diagnostic != nil {
		if conn.Diagnostic.Hint != "" {
			recs = append(recs, conn.Diagnostic.Hint)
		}
		recs = append(recs, conn.Diagnostic.Remediation...)
	}
	if conn.Connected && st.Prompts.Dynamic == 0 {
		recs = append(recs, "Database has no user tables; schema prompts will appear once tables exist")
	}
	if st.I18n.MissingCount > 0 {
		recs = append(recs, "Some messages are missing in "+st.I18n.Language+" and fall back to "+st.I18n.Fallback)
	}
	if !st.Guidance.Enabled {
		recs = append(recs, "Expert guidance is disabled; set FIREBIRD_DEFAULT_PROMPT_ENABLED=true to include it in tool results")
	}
	return recs
}

func serverStatusHandler(d Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := toolJSON(buildStatus(ctx, d))
		if err != nil {
			return toolError(err), nil
		}
		return mcp.NewToolResultText(text), nil
	}
}
