package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/guillermoBallester/fbmcp/internal/core/port"
	"github.com/guillermoBallester/fbmcp/internal/core/service"
)

const (
	toolTestConnection = "test_connection"
	toolExecuteQuery   = "execute_query"
	toolListTables     = "list_tables"
	toolGetTableInfo   = "get_table_info"
	toolServerStatus   = "server_status"
)

var toolCatalog = []string{toolTestConnection, toolExecuteQuery, toolListTables, toolGetTableInfo, toolServerStatus}

func isTool(name string) bool {
	for _, t := range toolCatalog {
		if t == name {
			return true
		}
	}
	return false
}

type expertArgs struct {
	DisableExpertMode bool   `json:"disable_expert_mode"`
	ExpertOperation   string `json:"expert_operation" validate:"omitempty,oneof=select insert update delete ddl admin"`
}

func (a expertArgs) options() service.DecorateOptions {
	return service.DecorateOptions{Disabled: a.DisableExpertMode, Operation: a.ExpertOperation}
}

type executeQueryArgs struct {
	SQL               string `json:"sql" validate:"required"`
	Params            []any  `json:"params"`
	DisableExpertMode bool   `json:"disable_expert_mode"`
	ExpertOperation   string `json:"expert_operation" validate:"omitempty,oneof=select insert update delete ddl admin"`
}

type tableArgs struct {
	Table             string `json:"table" validate:"required"`
	DisableExpertMode bool   `json:"disable_expert_mode"`
}

var argValidator = newArgValidator()

func newArgValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

type rawArgumentsKey struct{}

// withRawArguments keeps the tools/call arguments as received, so numbers in
// untyped fields reach the handler without a float64 round trip.
func withRawArguments(ctx context.Context, raw json.RawMessage) context.Context {
	if len(raw) == 0 || string(raw) == "null" {
		return ctx
	}
	return context.WithValue(ctx, rawArgumentsKey{}, raw)
}

// bind decodes tool arguments into dst and validates them. Numbers in
// untyped fields decode as json.Number. Failures are validation reports.
func bind(ctx context.Context, request mcp.CallToolRequest, dst any) error {
	data, ok := ctx.Value(rawArgumentsKey{}).(json.RawMessage)
	if !ok {
		var err error
		if data, err = json.Marshal(request.GetArguments()); err != nil {
			return port.NewDiagnostic(port.KindValidation, "arguments are not valid JSON: %s", err)
		}
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return port.NewDiagnostic(port.KindValidation, "argument %s must be %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value)
		}
		return port.NewDiagnostic(port.KindValidation, "invalid arguments: %s", err)
	}
	if err := argValidator.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return port.NewDiagnostic(port.KindValidation, "%s", err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			switch fe.Tag() {
			case "required":
				msgs = append(msgs, fmt.Sprintf("argument %s is required", fe.Field()))
			case "oneof":
				msgs = append(msgs, fmt.Sprintf("argument %s must be one of %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", ")))
			default:
				msgs = append(msgs, fmt.Sprintf("argument %s is invalid", fe.Field()))
			}
		}
		return port.NewDiagnostic(port.KindValidation, "%s", strings.Join(msgs, "; "))
	}
	return nil
}

func registerTools(s *server.MCPServer, d Deps) {
	describe := func(tool string) string {
		return d.Guidance.DescribeTool(tool, d.Catalog.Get("tools."+tool))
	}
	disableExpert := mcp.WithBoolean("disable_expert_mode",
		mcp.Description(d.Catalog.Get("tools.disable_expert_mode")),
	)
	expertOperation := mcp.WithString("expert_operation",
		mcp.Description(d.Catalog.Get("tools.expert_operation")),
		mcp.Enum("select", "insert", "update", "delete", "ddl", "admin"),
	)

	s.AddTool(
		mcp.NewTool(toolTestConnection,
			mcp.WithDescription(describe(toolTestConnection)),
		),
		testConnectionHandler(d.Database),
	)

	s.AddTool(
		mcp.NewTool(toolExecuteQuery,
			mcp.WithDescription(describe(toolExecuteQuery)),
			mcp.WithString("sql",
				mcp.Required(),
				mcp.Description(d.Catalog.Get("tools.execute_query_sql")),
			),
			mcp.WithArray("params",
				mcp.Description(d.Catalog.Get("tools.execute_query_params")),
				mcp.Items(map[string]any{"type": []string{"string", "number", "boolean", "null"}}),
			),
			disableExpert,
			expertOperation,
		),
		executeQueryHandler(d.Query, d.Guidance),
	)

	s.AddTool(
		mcp.NewTool(toolListTables,
			mcp.WithDescription(describe(toolListTables)),
			disableExpert,
		),
		listTablesHandler(d.Explorer, d.Guidance, d.Database.Status().Config.Database),
	)

	s.AddTool(
		mcp.NewTool(toolGetTableInfo,
			mcp.WithDescription(describe(toolGetTableInfo)),
			mcp.WithString("table",
				mcp.Required(),
				mcp.Description(d.Catalog.Get("tools.get_table_info_table")),
			),
			disableExpert,
		),
		getTableInfoHandler(d.Explorer, d.Guidance),
	)

	s.AddTool(
		mcp.NewTool(toolServerStatus,
			mcp.WithDescription(describe(toolServerStatus)),
		),
		serverStatusHandler(d),
	)
}

// toolError wraps a failure as an isError result carrying the report JSON.
func toolError(err error) *mcp.CallToolResult {
	report := port.AsDiagnostic(err)
	data, mErr := json.Marshal(report)
	if mErr != nil {
		return mcp.NewToolResultError(report.Error())
	}
	return mcp.NewToolResultError(string(data))
}

func toolJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", port.NewDiagnostic(port.KindUnknown, "encoding result: %s", err)
	}
	return string(data), nil
}

func testConnectionHandler(db port.Database) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := toolJSON(db.TestConnection(ctx))
		if err != nil {
			return toolError(err), nil
		}
		return mcp.NewToolResultText(text), nil
	}
}

type executeQueryResult struct {
	Result   any `json:"result"`
	Advisory any `json:"advisory"`
}

func executeQueryHandler(query *service.QueryService, guidance *service.Guidance) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args executeQueryArgs
		if err := bind(ctx, request, &args); err != nil {
			return toolError(err), nil
		}

		out, err := query.Execute(ctx, port.QueryRequest{SQL: args.SQL, Params: args.Params})
		if err != nil {
			return toolError(err), nil
		}

		text, err := toolJSON(executeQueryResult{Result: out.Result.Payload(), Advisory: out.Advisory})
		if err != nil {
			return toolError(err), nil
		}
		opts := expertArgs{DisableExpertMode: args.DisableExpertMode, ExpertOperation: args.ExpertOperation}.options()
		return mcp.NewToolResultText(guidance.Decorate(toolExecuteQuery, text, opts)), nil
	}
}

type listTablesResult struct {
	Tables   []string         `json:"tables"`
	Detailed []port.TableInfo `json:"tables_detailed"`
	Count    int              `json:"count"`
	Database string           `json:"database"`
}

func listTablesHandler(explorer *service.ExplorerService, guidance *service.Guidance, database string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args expertArgs
		if err := bind(ctx, request, &args); err != nil {
			return toolError(err), nil
		}

		infos, err := explorer.ListTableInfo(ctx)
		if err != nil {
			return toolError(err), nil
		}
		names := make([]string, len(infos))
		for i, t := range infos {
			names[i] = t.Name
		}

		text, err := toolJSON(listTablesResult{Tables: names, Detailed: infos, Count: len(infos), Database: database})
		if err != nil {
			return toolError(err), nil
		}
		return mcp.NewToolResultText(guidance.Decorate(toolListTables, text, args.options())), nil
	}
}

func getTableInfoHandler(explorer *service.ExplorerService, guidance *service.Guidance) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args tableArgs
		if err := bind(ctx, request, &args); err != nil {
			return toolError(err), nil
		}

		desc, err := explorer.GetTableInfo(ctx, args.Table)
		if err != nil {
			return toolError(err), nil
		}

		text, err := toolJSON(desc)
		if err != nil {
			return toolError(err), nil
		}
		opts := service.DecorateOptions{Disabled: args.DisableExpertMode}
		return mcp.NewToolResultText(guidance.Decorate(toolGetTableInfo, text, opts)), nil
	}
}
