package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/guillermoBallester/fbmcp/internal/core/port"
	"github.com/guillermoBallester/fbmcp/internal/i18n"
)

const (
	PromptExpert       = "firebird_expert"
	PromptPerformance  = "firebird_performance"
	PromptArchitecture = "firebird_architecture"

	schemaPromptSuffix = "_schema"

	// maxContextTables bounds the table list embedded in the expert prompt.
	maxContextTables = 10
)

var staticPrompts = []struct {
	name string
	args []string
}{
	{PromptExpert, []string{"operation_type", "complexity_level", "table_context"}},
	{PromptPerformance, []string{"query_type", "focus_area"}},
	{PromptArchitecture, []string{"topic", "version_focus"}},
}

// PromptService generates the static persona prompts and one schema prompt
// per user table.
type PromptService struct {
	catalog  *i18n.Catalog
	explorer port.SchemaExplorer
	conn     port.ConnectionConfig
	logger   *slog.Logger
}

func NewPromptService(catalog *i18n.Catalog, explorer port.SchemaExplorer, conn port.ConnectionConfig, logger *slog.Logger) *PromptService {
	return &PromptService{
		catalog:  catalog,
		explorer: explorer,
		conn:     conn.Redacted(),
		logger:   logger,
	}
}

// IsPersona reports whether name is one of the static persona prompts.
func IsPersona(name string) bool {
	for _, p := range staticPrompts {
		if p.name == name {
			return true
		}
	}
	return false
}

// Static returns the persona prompts in catalog order.
func (s *PromptService) Static() []port.PromptSpec {
	out := make([]port.PromptSpec, 0, len(staticPrompts))
	for _, p := range staticPrompts {
		spec := port.PromptSpec{
			Name:        p.name,
			Description: s.catalog.Get("prompts." + p.name + ".description"),
			Kind:        port.PromptStatic,
		}
		for _, arg := range p.args {
			spec.Arguments = append(spec.Arguments, port.PromptArgument{
				Name:        arg,
				Description: s.catalog.Get("prompts." + p.name + "." + arg),
			})
		}
		out = append(out, spec)
	}
	return out
}

// List returns the static prompts followed by one <TABLE>_schema prompt per
// table. Failing to list tables contributes no schema prompts.
func (s *PromptService) List(ctx context.Context) []port.PromptSpec {
	out := s.Static()
	tables, err := s.explorer.ListTables(ctx)
	if err != nil {
		s.logger.Debug("schema prompts unavailable", "error.type", string(port.KindOf(err)), "error", err)
		return out
	}
	for _, t := range tables {
		out = append(out, port.PromptSpec{
			Name:        t + schemaPromptSuffix,
			Description: s.catalog.Format("table_schema.description", map[string]string{"table": t}),
			Kind:        port.PromptSchema,
		})
	}
	return out
}

// Render produces the text of a prompt. Unknown names yield a not-found
// report; schema prompts propagate the explorer's report.
func (s *PromptService) Render(ctx context.Context, name string, args map[string]string) (*port.RenderedPrompt, error) {
	if IsPersona(name) {
		return &port.RenderedPrompt{
			Description: s.catalog.Get("prompts." + name + ".description"),
			Text:        s.persona(ctx, name, args, true),
		}, nil
	}

	table, ok := strings.CutSuffix(name, schemaPromptSuffix)
	if !ok || table == "" {
		return nil, port.NewDiagnostic(port.KindNotFound, "prompt %q not found", name)
	}

	desc, err := s.explorer.GetTableInfo(ctx, table)
	if err != nil {
		return nil, port.AsDiagnostic(err)
	}
	return &port.RenderedPrompt{
		Description: s.catalog.Format("table_schema.description", map[string]string{"table": desc.Name}),
		Text:        s.renderSchema(desc),
	}, nil
}

// Persona renders a persona prompt without touching the database. Used for
// the guidance prepended to tool results.
func (s *PromptService) Persona(name string, args map[string]string) string {
	return s.persona(context.Background(), name, args, false)
}

func (s *PromptService) persona(ctx context.Context, name string, args map[string]string, withTables bool) string {
	switch name {
	case PromptPerformance:
		return s.renderPerformance(args)
	case PromptArchitecture:
		return s.renderArchitecture(args)
	default:
		return s.renderExpert(ctx, args, withTables)
	}
}

func (s *PromptService) env() map[string]string {
	return map[string]string{
		"host":     s.conn.Host,
		"port":     strconv.Itoa(s.conn.Port),
		"database": s.conn.Database,
		"user":     s.conn.User,
	}
}

func argOr(args map[string]string, key, def string) string {
	if v := strings.TrimSpace(args[key]); v != "" {
		return v
	}
	return def
}

func (s *PromptService) renderExpert(ctx context.Context, args map[string]string, withTables bool) string {
	c := s.catalog
	op := strings.ToLower(argOr(args, "operation_type", "query"))
	level := strings.ToLower(argOr(args, "complexity_level", "intermediate"))

	sections := []string{
		c.Get("prompts.firebird_expert.title"),
		c.Get("prompts.firebird_expert.intro"),
		c.Format("prompts.firebird_expert.environment", s.env()),
	}
	if withTables {
		if tables, err := s.explorer.ListTables(ctx); err == nil && len(tables) > 0 {
			if len(tables) > maxContextTables {
				tables = append(tables[:maxContextTables:maxContextTables], "...")
			}
			sections = append(sections, c.Format("prompts.firebird_expert.available_tables",
				map[string]string{"tables": strings.Join(tables, ", ")}))
		}
	}
	if table := strings.TrimSpace(args["table_context"]); table != "" {
		sections = append(sections, c.Format("prompts.firebird_expert.table_context_line", map[string]string{"table": table}))
	}
	sections = append(sections,
		c.Format("prompts.firebird_expert.operation", map[string]string{"operation": op, "level": level}),
		c.Format("prompts.firebird_expert.guidance", map[string]string{"guidance": s.operationGuidance(op)}),
		c.Get("prompts.firebird_expert.expertise"),
		c.Get("prompts.firebird_expert.advanced"),
		c.Get("prompts.firebird_expert.approach"),
	)
	return strings.Join(sections, "\n\n")
}

func (s *PromptService) operationGuidance(op string) string {
	if key := "operation_guidance." + op; s.catalog.Has(key) {
		return s.catalog.Get(key)
	}
	return s.catalog.Get("operation_guidance.query")
}

func (s *PromptService) renderPerformance(args map[string]string) string {
	c := s.catalog
	return strings.Join([]string{
		c.Get("prompts.firebird_performance.title"),
		c.Get("prompts.firebird_performance.intro"),
		c.Format("prompts.firebird_performance.environment", s.env()),
		c.Format("prompts.firebird_performance.focus_queries", map[string]string{"query_type": argOr(args, "query_type", "select")}),
		c.Get("prompts.firebird_performance.methodology"),
		c.Format("prompts.firebird_performance.focus", map[string]string{"focus": argOr(args, "focus_area", "indexes")}),
		c.Get("prompts.firebird_performance.metrics"),
	}, "\n\n")
}

func (s *PromptService) renderArchitecture(args map[string]string) string {
	c := s.catalog
	return strings.Join([]string{
		c.Get("prompts.firebird_architecture.title"),
		c.Get("prompts.firebird_architecture.intro"),
		c.Format("prompts.firebird_architecture.environment", s.env()),
		c.Format("prompts.firebird_architecture.focus_topic", map[string]string{
			"topic":   argOr(args, "topic", "backup"),
			"version": argOr(args, "version_focus", "current"),
		}),
		c.Get("prompts.firebird_architecture.architectures"),
		c.Get("prompts.firebird_architecture.practices"),
	}, "\n\n")
}

func (s *PromptService) renderSchema(t *port.TableDescriptor) string {
	c := s.catalog
	var b strings.Builder
	line := func(text string) {
		b.WriteString(text)
		b.WriteByte('\n')
	}
	table := map[string]string{"table": t.Name}

	line(c.Format("table_schema.title", table))
	line("")
	line(c.Get("table_schema.info"))
	line(c.Format("table_schema.info_name", table))
	if t.Comment != "" {
		line(c.Format("table_schema.info_comment", map[string]string{"comment": t.Comment}))
	}
	line(c.Format("table_schema.info_columns", map[string]string{"count": strconv.Itoa(len(t.Columns))}))
	line("")

	line(c.Get("table_schema.columns"))
	for _, col := range t.Columns {
		args := map[string]string{
			"name":        col.Name,
			"type":        col.Type,
			"length":      "",
			"nullability": c.Get("table_schema.nullable"),
			"pk":          "",
			"default":     "",
		}
		if col.Length > 0 {
			args["length"] = fmt.Sprintf("(%d)", col.Length)
		}
		if !col.Nullable {
			args["nullability"] = c.Get("table_schema.not_null")
		}
		if t.IsPrimaryKey(col.Name) {
			args["pk"] = c.Get("table_schema.primary_key_marker")
		}
		if col.Default != "" {
			args["default"] = c.Format("table_schema.default", map[string]string{"value": col.Default})
		}
		line(c.Format("table_schema.column_line", args))
	}
	line("")

	line(c.Get("table_schema.primary_keys"))
	if len(t.PrimaryKey) == 0 {
		line(c.Get("table_schema.none"))
	}
	for _, pk := range t.PrimaryKey {
		line("- " + pk)
	}
	line("")

	line(c.Get("table_schema.foreign_keys"))
	if len(t.ForeignKeys) == 0 {
		line(c.Get("table_schema.none"))
	}
	for _, fk := range t.ForeignKeys {
		line(c.Format("table_schema.foreign_key_line", map[string]string{
			"column":     fk.Column,
			"table":      fk.RefTable,
			"ref_column": fk.RefColumn,
			"name":       fk.Name,
		}))
	}
	line("")

	line(c.Get("table_schema.indexes"))
	if len(t.Indexes) == 0 {
		line(c.Get("table_schema.none"))
	}
	for _, idx := range t.Indexes {
		unique := ""
		if idx.Unique {
			unique = c.Get("table_schema.unique")
		}
		line(c.Format("table_schema.index_line", map[string]string{
			"name":    idx.Name,
			"columns": strings.Join(idx.Columns, ", "),
			"unique":  unique,
		}))
	}
	line("")

	line(c.Get("table_schema.usage"))
	names := make([]string, 0, 5)
	for i, col := range t.Columns {
		if i == 5 {
			break
		}
		names = append(names, col.Name)
	}
	if len(names) > 0 {
		line(c.Format("table_schema.usage_select", map[string]string{"columns": strings.Join(names, ", "), "table": t.Name}))
	}
	if len(t.PrimaryKey) > 0 {
		preds := make([]string, len(t.PrimaryKey))
		for i, pk := range t.PrimaryKey {
			preds[i] = pk + " = ?"
		}
		line(c.Format("table_schema.usage_pk", map[string]string{"predicate": strings.Join(preds, " AND ")}))
	}
	for _, fk := range t.ForeignKeys {
		line(c.Format("table_schema.usage_join", map[string]string{
			"ref_table":  fk.RefTable,
			"table":      t.Name,
			"column":     fk.Column,
			"ref_column": fk.RefColumn,
		}))
	}
	b.WriteString(c.Get("table_schema.usage_params"))
	return b.String()
}
