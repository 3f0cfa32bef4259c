package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guillermoBallester/fbmcp/internal/core/domain"
	"github.com/guillermoBallester/fbmcp/internal/core/port"
)

// --- mock QueryExecutor ---

type mockExecutor struct {
	executeCalled bool
	lastReq       port.QueryRequest
	result        *port.QueryResult
	err           error
}

func (m *mockExecutor) ExecuteQuery(_ context.Context, req port.QueryRequest) (*port.QueryResult, error) {
	m.executeCalled = true
	m.lastReq = req
	return m.result, m.err
}

// --- mock SchemaExplorer ---

type mockExplorer struct {
	tables    []string
	tablesErr error
	describe  map[string]*port.TableDescriptor
	err       error
	described []string
}

func (m *mockExplorer) ListTables(_ context.Context) ([]string, error) {
	return m.tables, m.tablesErr
}

func (m *mockExplorer) ListTableInfo(_ context.Context) ([]port.TableInfo, error) {
	out := make([]port.TableInfo, len(m.tables))
	for i, n := range m.tables {
		out[i] = port.TableInfo{Name: n}
	}
	return out, m.tablesErr
}

func (m *mockExplorer) GetTableInfo(_ context.Context, table string) (*port.TableDescriptor, error) {
	m.described = append(m.described, table)
	if m.err != nil {
		return nil, m.err
	}
	if d, ok := m.describe[table]; ok {
		return d, nil
	}
	return nil, port.NewDiagnostic(port.KindNotFound, "table %s not found", table)
}

// --- helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rowsResult(rows ...map[string]any) *port.QueryResult {
	return &port.QueryResult{RowSet: &port.RowSet{Rows: rows, RowCount: len(rows)}}
}

// --- tests ---

func TestQueryService_ValidSelect(t *testing.T) {
	exec := &mockExecutor{result: rowsResult(map[string]any{"ID": 1, "NAME": "alice"})}
	svc := NewQueryService(domain.NewQueryValidator(), exec, nil, testLogger())

	out, err := svc.Execute(context.Background(), port.QueryRequest{SQL: "SELECT ID, NAME FROM USERS WHERE ID = ?", Params: []any{1}})
	require.NoError(t, err)
	assert.True(t, exec.executeCalled)
	assert.Equal(t, []any{1}, exec.lastReq.Params)
	require.NotNil(t, out.Result.RowSet)
	assert.Equal(t, "alice", out.Result.RowSet.Rows[0]["NAME"])
	assert.Equal(t, domain.OpSelect, out.Advisory.Operation)
}

func TestQueryService_AllowsWrites(t *testing.T) {
	exec := &mockExecutor{result: &port.QueryResult{Affected: &port.AffectedCount{Affected: 3}}}
	svc := NewQueryService(domain.NewQueryValidator(), exec, nil, testLogger())

	out, err := svc.Execute(context.Background(), port.QueryRequest{SQL: "DELETE FROM USERS"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), out.Result.Affected.Affected)
	assert.True(t, out.Advisory.HasCode(domain.CodeMissingWhere))
}

func TestQueryService_RejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{"empty", ""},
		{"whitespace", "   \n\t"},
		{"comment only", "-- nothing here"},
		{"two statements", "SELECT 1 FROM RDB$DATABASE; DELETE FROM USERS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &mockExecutor{}
			svc := NewQueryService(domain.NewQueryValidator(), exec, nil, testLogger())

			_, err := svc.Execute(context.Background(), port.QueryRequest{SQL: tt.sql})
			require.Error(t, err)
			assert.Equal(t, port.KindValidation, port.KindOf(err))
			assert.False(t, exec.executeCalled, "executor should not be called for rejected input")
		})
	}
}

func TestQueryService_ExecutorError(t *testing.T) {
	exec := &mockExecutor{err: port.NewDiagnostic(port.KindNetworkUnreachable, "dial tcp: connection refused")}
	explorer := &mockExplorer{}
	svc := NewQueryService(domain.NewQueryValidator(), exec, explorer, testLogger())

	_, err := svc.Execute(context.Background(), port.QueryRequest{SQL: "SELECT A.ID FROM A JOIN B ON A.ID = B.A_ID"})
	require.Error(t, err)
	assert.Equal(t, port.KindNetworkUnreachable, port.KindOf(err))
	assert.Empty(t, explorer.described, "no schema lookups after a failed execution")
}

func TestQueryService_IndexHints(t *testing.T) {
	exec := &mockExecutor{result: rowsResult()}
	explorer := &mockExplorer{describe: map[string]*port.TableDescriptor{
		"ORDERS": {
			Name:       "ORDERS",
			PrimaryKey: []string{"ID"},
		},
		"CUSTOMERS": {
			Name:       "CUSTOMERS",
			PrimaryKey: []string{"ID"},
			Indexes:    []port.Index{{Name: "RDB$PRIMARY1", Columns: []string{"ID"}, Unique: true}},
		},
	}}
	svc := NewQueryService(domain.NewQueryValidator(), exec, explorer, testLogger())

	out, err := svc.Execute(context.Background(), port.QueryRequest{
		SQL: "SELECT O.ID FROM ORDERS O JOIN CUSTOMERS C ON O.CUSTOMER_ID = C.ID",
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ORDERS", "CUSTOMERS"}, explorer.described)
	assert.True(t, out.Advisory.HasCode(domain.CodeUnindexedJoin))
}

func TestQueryService_IndexHintsBestEffort(t *testing.T) {
	exec := &mockExecutor{result: rowsResult()}
	explorer := &mockExplorer{err: port.NewDiagnostic(port.KindQueryFailed, "boom")}
	svc := NewQueryService(domain.NewQueryValidator(), exec, explorer, testLogger())

	out, err := svc.Execute(context.Background(), port.QueryRequest{
		SQL: "SELECT O.ID FROM ORDERS O JOIN CUSTOMERS C ON O.CUSTOMER_ID = C.ID",
	})
	require.NoError(t, err)
	assert.False(t, out.Advisory.HasCode(domain.CodeUnindexedJoin))
}

func TestExplorerService_RejectsBlankTable(t *testing.T) {
	explorer := &mockExplorer{}
	svc := NewExplorerService(explorer)

	_, err := svc.GetTableInfo(context.Background(), " ")
	assert.Equal(t, port.KindValidation, port.KindOf(err))
	assert.Empty(t, explorer.described)
}

func TestExplorerService_PassesThrough(t *testing.T) {
	explorer := &mockExplorer{
		tables:   []string{"A", "B"},
		describe: map[string]*port.TableDescriptor{"A": {Name: "A"}},
	}
	svc := NewExplorerService(explorer)

	tables, err := svc.ListTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, tables)

	desc, err := svc.GetTableInfo(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, "A", desc.Name)
}
