package service

import (
	"strings"

	"github.com/guillermoBallester/fbmcp/internal/config"
	"github.com/guillermoBallester/fbmcp/internal/i18n"
)

// Tools whose results carry expert guidance.
var guidedTools = map[string]bool{
	"execute_query":  true,
	"list_tables":    true,
	"get_table_info": true,
}

// DecorateOptions are per-call overrides. They never change the configured
// defaults.
type DecorateOptions struct {
	Disabled  bool
	Operation string
}

type GuidanceStatus struct {
	Enabled    bool     `json:"enabled"`
	Status     string   `json:"status"`
	Persona    string   `json:"persona"`
	Operation  string   `json:"operation_type"`
	Complexity string   `json:"complexity_level"`
	Tools      []string `json:"applies_to"`
}

// Guidance prepends the configured persona's guidance to data tool results.
// Its configuration is fixed at construction.
type Guidance struct {
	cfg     config.GuidanceConfig
	prompts *PromptService
	catalog *i18n.Catalog
}

func NewGuidance(cfg config.GuidanceConfig, prompts *PromptService, catalog *i18n.Catalog) *Guidance {
	return &Guidance{cfg: cfg, prompts: prompts, catalog: catalog}
}

func (g *Guidance) applies(tool string) bool {
	return g.cfg.Enabled && guidedTools[tool]
}

// Decorate returns text prefixed with the persona guidance and a separator,
// or text unchanged when guidance is off for this tool or call.
func (g *Guidance) Decorate(tool, text string, opts DecorateOptions) string {
	if !g.applies(tool) || opts.Disabled {
		return text
	}

	op := g.cfg.Operation
	if o := strings.TrimSpace(opts.Operation); o != "" {
		op = strings.ToLower(o)
	}

	args := map[string]string{"operation_type": op, "complexity_level": g.cfg.Complexity}
	if g.cfg.Persona == PromptPerformance {
		args = map[string]string{"query_type": op}
	}

	var b strings.Builder
	b.WriteString(g.catalog.Format("guidance.header", map[string]string{"persona": g.cfg.Persona}))
	b.WriteString("\n\n")
	b.WriteString(g.prompts.Persona(g.cfg.Persona, args))
	b.WriteString("\n\n")
	b.WriteString(g.catalog.Get("guidance.separator"))
	b.WriteString("\n\n")
	b.WriteString(text)
	return b.String()
}

// DescribeTool appends the guidance note to a data tool's description.
func (g *Guidance) DescribeTool(tool, base string) string {
	if !g.applies(tool) {
		return base
	}
	return base + "\n\n" + g.catalog.Format("tools.expert_note", map[string]string{"persona": g.cfg.Persona})
}

func (g *Guidance) Status() GuidanceStatus {
	st := GuidanceStatus{
		Enabled:    g.cfg.Enabled,
		Status:     g.catalog.Get("guidance.status_disabled"),
		Persona:    g.cfg.Persona,
		Operation:  g.cfg.Operation,
		Complexity: g.cfg.Complexity,
		Tools:      []string{"execute_query", "get_table_info", "list_tables"},
	}
	if g.cfg.Enabled {
		st.Status = g.catalog.Get("guidance.status_enabled")
	}
	return st
}
