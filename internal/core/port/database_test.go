package port

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testConfig() ConnectionConfig {
	return ConnectionConfig{
		Host:     "db.internal",
		Port:     3050,
		Database: "/data/employee.fdb",
		User:     "SYSDBA",
		Password: "s3cret",
		Charset:  "UTF8",
	}
}

func TestConnectionConfig_DSN(t *testing.T) {
	assert.Equal(t, "SYSDBA:s3cret@db.internal:3050//data/employee.fdb?charset=UTF8", testConfig().DSN())
}

func TestConnectionConfig_DSN_Alias(t *testing.T) {
	cfg := testConfig()
	cfg.Database = "employee"
	cfg.Charset = ""
	assert.Equal(t, "SYSDBA:s3cret@db.internal:3050/employee", cfg.DSN())
}

func TestConnectionConfig_Redacted(t *testing.T) {
	cfg := testConfig()
	red := cfg.Redacted()

	assert.Equal(t, "****", red.Password)
	assert.Equal(t, "s3cret", cfg.Password, "original must not change")
	assert.Equal(t, "SYSDBA:****@db.internal:3050//data/employee.fdb?charset=UTF8", cfg.RedactedDSN())
	assert.NotContains(t, cfg.RedactedDSN(), "s3cret")
}

func TestAsDiagnostic(t *testing.T) {
	report := NewDiagnostic(KindNotFound, "table %q not found", "FOO")
	wrapped := fmt.Errorf("describing: %w", report)

	assert.Nil(t, AsDiagnostic(nil))
	assert.Same(t, report, AsDiagnostic(wrapped))
	assert.Equal(t, KindNotFound, KindOf(wrapped))

	foreign := AsDiagnostic(errors.New("boom"))
	assert.Equal(t, KindUnknown, foreign.Kind)
	assert.Equal(t, "boom", foreign.Message)
}

func TestDiagnosticKind_Fatal(t *testing.T) {
	assert.True(t, KindNetworkUnreachable.Fatal())
	assert.True(t, KindAuthRejected.Fatal())
	assert.False(t, KindQueryFailed.Fatal())
	assert.False(t, KindNotFound.Fatal())
	assert.False(t, KindValidation.Fatal())
}

func TestQueryResult_Payload(t *testing.T) {
	rows := &QueryResult{RowSet: &RowSet{Rows: []map[string]any{}, RowCount: 0}}
	assert.IsType(t, &RowSet{}, rows.Payload())

	affected := &QueryResult{Affected: &AffectedCount{Affected: 3}}
	assert.Equal(t, &AffectedCount{Affected: 3}, affected.Payload())
}
