package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guillermoBallester/fbmcp/internal/core/port"
	"github.com/guillermoBallester/fbmcp/internal/i18n"
)

func testCatalog(t *testing.T) *i18n.Catalog {
	t.Helper()
	c, err := i18n.Load("en_US")
	require.NoError(t, err)
	return c
}

var testConn = port.ConnectionConfig{
	Host:     "db.internal",
	Port:     3050,
	Database: "/data/shop.fdb",
	User:     "SYSDBA",
	Password: "s3cret",
	Charset:  "UTF8",
}

func ordersTable() *port.TableDescriptor {
	return &port.TableDescriptor{
		Name: "ORDERS",
		Columns: []port.ColumnDescriptor{
			{Name: "ID", Type: "INTEGER", Nullable: false, Position: 1},
			{Name: "CUSTOMER_ID", Type: "INTEGER", Nullable: false, Position: 2},
			{Name: "NOTE", Type: "VARCHAR", Length: 200, Nullable: true, Position: 3},
			{Name: "TOTAL", Type: "NUMERIC(10,2)", Nullable: false, Position: 4, Default: "0"},
		},
		PrimaryKey: []string{"ID"},
		ForeignKeys: []port.ForeignKey{
			{Name: "FK_ORDERS_CUSTOMER", Column: "CUSTOMER_ID", RefTable: "CUSTOMERS", RefColumn: "ID"},
		},
		Indexes: []port.Index{
			{Name: "RDB$PRIMARY2", Columns: []string{"ID"}, Unique: true},
			{Name: "FK_ORDERS_CUSTOMER", Columns: []string{"CUSTOMER_ID"}},
		},
	}
}

func newPromptService(t *testing.T, explorer port.SchemaExplorer) *PromptService {
	return NewPromptService(testCatalog(t), explorer, testConn, testLogger())
}

func promptNames(specs []port.PromptSpec) []string {
	out := make([]string, len(specs))
	for i, s := range specs {
		out[i] = s.Name
	}
	return out
}

func TestPromptService_List(t *testing.T) {
	svc := newPromptService(t, &mockExplorer{tables: []string{"CUSTOMERS", "ORDERS"}})

	specs := svc.List(context.Background())
	assert.Equal(t, []string{
		PromptExpert, PromptPerformance, PromptArchitecture,
		"CUSTOMERS_schema", "ORDERS_schema",
	}, promptNames(specs))

	assert.Equal(t, port.PromptStatic, specs[0].Kind)
	require.Len(t, specs[0].Arguments, 3)
	assert.Equal(t, "operation_type", specs[0].Arguments[0].Name)
	assert.NotEmpty(t, specs[0].Arguments[0].Description)

	assert.Equal(t, port.PromptSchema, specs[4].Kind)
	assert.Equal(t, "Schema information for table: ORDERS", specs[4].Description)
}

func TestPromptService_ListWithFailingAdapter(t *testing.T) {
	svc := newPromptService(t, &mockExplorer{
		tablesErr: port.NewDiagnostic(port.KindNetworkUnreachable, "connection refused"),
	})

	specs := svc.List(context.Background())
	assert.Equal(t, []string{PromptExpert, PromptPerformance, PromptArchitecture}, promptNames(specs))
}

func TestPromptService_RenderUnknown(t *testing.T) {
	svc := newPromptService(t, &mockExplorer{})

	for _, name := range []string{"nope", "_schema", "firebird_poet"} {
		_, err := svc.Render(context.Background(), name, nil)
		assert.Equal(t, port.KindNotFound, port.KindOf(err), name)
	}
}

func TestPromptService_RenderSchema(t *testing.T) {
	svc := newPromptService(t, &mockExplorer{describe: map[string]*port.TableDescriptor{"ORDERS": ordersTable()}})

	out, err := svc.Render(context.Background(), "ORDERS_schema", nil)
	require.NoError(t, err)
	assert.Equal(t, "Schema information for table: ORDERS", out.Description)

	text := out.Text
	assert.Contains(t, text, "# Table Schema: ORDERS")
	assert.Contains(t, text, "- Columns: 4")
	assert.NotContains(t, text, "- Description:")
	assert.Contains(t, text, "- ID: INTEGER NOT NULL [PK]")
	assert.Contains(t, text, "- NOTE: VARCHAR(200) NULL")
	assert.Contains(t, text, "- TOTAL: NUMERIC(10,2) NOT NULL DEFAULT 0")
	assert.Contains(t, text, "- foreign key CUSTOMER_ID references CUSTOMERS.ID (FK_ORDERS_CUSTOMER)")
	assert.Contains(t, text, "- RDB$PRIMARY2 (ID) UNIQUE")
	assert.Contains(t, text, "WHERE ID = ?")
	assert.Contains(t, text, "Join to CUSTOMERS on ORDERS.CUSTOMER_ID = CUSTOMERS.ID")
}

func TestPromptService_RenderSchemaComment(t *testing.T) {
	orders := ordersTable()
	orders.Comment = "Customer orders"
	svc := newPromptService(t, &mockExplorer{describe: map[string]*port.TableDescriptor{"ORDERS": orders}})

	out, err := svc.Render(context.Background(), "ORDERS_schema", nil)
	require.NoError(t, err)
	assert.Contains(t, out.Text, "- Name: ORDERS\n- Description: Customer orders\n- Columns: 4")
}

func TestPromptService_RenderSchemaDeterministic(t *testing.T) {
	svc := newPromptService(t, &mockExplorer{describe: map[string]*port.TableDescriptor{"ORDERS": ordersTable()}})

	first, err := svc.Render(context.Background(), "ORDERS_schema", nil)
	require.NoError(t, err)
	second, err := svc.Render(context.Background(), "ORDERS_schema", nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPromptService_RenderSchemaEmptySections(t *testing.T) {
	svc := newPromptService(t, &mockExplorer{describe: map[string]*port.TableDescriptor{
		"LOG": {Name: "LOG", Columns: []port.ColumnDescriptor{{Name: "MSG", Type: "BLOB SUB_TYPE TEXT", Nullable: true}}},
	}})

	out, err := svc.Render(context.Background(), "LOG_schema", nil)
	require.NoError(t, err)
	assert.Contains(t, out.Text, "## Primary Keys\n- none")
	assert.Contains(t, out.Text, "## Foreign Keys\n- none")
	assert.Contains(t, out.Text, "## Indexes\n- none")
}

func TestPromptService_RenderSchemaMissingTable(t *testing.T) {
	svc := newPromptService(t, &mockExplorer{})

	for _, name := range []string{"GHOST_schema", "RDB$RELATIONS_schema"} {
		_, err := svc.Render(context.Background(), name, nil)
		assert.Equal(t, port.KindNotFound, port.KindOf(err), name)
	}
}

func TestPromptService_RenderSchemaAdapterFailure(t *testing.T) {
	svc := newPromptService(t, &mockExplorer{err: port.NewDiagnostic(port.KindAuthRejected, "bad password")})

	_, err := svc.Render(context.Background(), "ORDERS_schema", nil)
	assert.Equal(t, port.KindAuthRejected, port.KindOf(err))
}

func TestPromptService_RenderExpert(t *testing.T) {
	svc := newPromptService(t, &mockExplorer{tables: []string{"CUSTOMERS", "ORDERS"}})

	out, err := svc.Render(context.Background(), PromptExpert, map[string]string{
		"operation_type":   "UPDATE",
		"complexity_level": "advanced",
		"table_context":    "ORDERS",
	})
	require.NoError(t, err)
	assert.Contains(t, out.Text, "# Firebird Database Expert")
	assert.Contains(t, out.Text, "Environment: db.internal:3050 database /data/shop.fdb as SYSDBA")
	assert.Contains(t, out.Text, "Available tables: CUSTOMERS, ORDERS")
	assert.Contains(t, out.Text, "Table context: ORDERS")
	assert.Contains(t, out.Text, "**Operation**: update (advanced)")
	assert.Contains(t, out.Text, "Always filter with a selective WHERE")
	assert.NotContains(t, out.Text, "s3cret")
}

func TestPromptService_RenderExpertUnknownOperation(t *testing.T) {
	catalog := testCatalog(t)
	svc := NewPromptService(catalog, &mockExplorer{}, testConn, testLogger())

	out, err := svc.Render(context.Background(), PromptExpert, map[string]string{"operation_type": "vacuum"})
	require.NoError(t, err)
	assert.Contains(t, out.Text, "Validate and optimize the query before running it")
	assert.Empty(t, catalog.MissingKeys())
}

func TestPromptService_RenderPersonasWithDefaults(t *testing.T) {
	svc := newPromptService(t, &mockExplorer{})

	perf, err := svc.Render(context.Background(), PromptPerformance, nil)
	require.NoError(t, err)
	assert.Contains(t, perf.Text, "Focus on select queries.")
	assert.Contains(t, perf.Text, "**Focus**: indexes")

	arch, err := svc.Render(context.Background(), PromptArchitecture, map[string]string{"topic": "security", "version_focus": "5.0"})
	require.NoError(t, err)
	assert.Contains(t, arch.Text, "Topic: security | Version: 5.0")
	assert.Contains(t, arch.Text, "Env: db.internal:3050 - /data/shop.fdb")
}
