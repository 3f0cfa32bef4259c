package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guillermoBallester/fbmcp/internal/adapter/audit"
	"github.com/guillermoBallester/fbmcp/internal/adapter/auth"
	"github.com/guillermoBallester/fbmcp/internal/adapter/httpserver"
	"github.com/guillermoBallester/fbmcp/internal/config"
	"github.com/guillermoBallester/fbmcp/internal/core/port"
)

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "fbmcp dev ("))
}

func TestKeygenCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"keygen", "--quiet"})

	require.NoError(t, root.Execute())
	key := strings.TrimSpace(out.String())
	assert.True(t, strings.HasPrefix(key, auth.KeyPrefix))
	assert.Len(t, key, len(auth.KeyPrefix)+64)
}

func TestServe_RequiresDatabase(t *testing.T) {
	t.Setenv("FIREBIRD_DATABASE", "")

	root := newRootCmd()
	root.SetArgs([]string{})
	root.SetErr(&bytes.Buffer{})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
	assert.Contains(t, err.Error(), "FIREBIRD_DATABASE")
}

func TestServe_StdioUntilEOF(t *testing.T) {
	t.Setenv("FIREBIRD_DATABASE", "/data/test.fdb")
	t.Setenv("FIREBIRD_HOST", "127.0.0.1")
	t.Setenv("FIREBIRD_PORT", "1")
	t.Setenv("CONNECT_TIMEOUT", "1s")

	in := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n")
	var out, logs bytes.Buffer

	require.NoError(t, runServe(t.Context(), in, &out, &logs))
	assert.Contains(t, out.String(), `"id":1`)
	assert.Contains(t, logs.String(), "database unreachable at startup")
	assert.NotContains(t, logs.String(), "masterkey")
}

func TestServe_AuditTrail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	t.Setenv("FIREBIRD_DATABASE", "/data/test.fdb")
	t.Setenv("FIREBIRD_HOST", "127.0.0.1")
	t.Setenv("FIREBIRD_PORT", "1")
	t.Setenv("CONNECT_TIMEOUT", "1s")
	t.Setenv("AUDIT_LOG_FILE", path)

	in := strings.NewReader(strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"get_table_info","arguments":{"table":"ORDERS"}}}`,
	}, "\n") + "\n")
	var out, logs bytes.Buffer

	require.NoError(t, runServe(t.Context(), in, &out, &logs))
	assert.Contains(t, out.String(), `"id":2`)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"tool":"get_table_info"`)
	assert.Contains(t, string(data), `"input":"ORDERS"`)
	assert.Contains(t, string(data), `"is_error":true`)
}

type recordingSink struct {
	entries int
	closed  bool
}

func (s *recordingSink) WriteBatch(_ context.Context, entries []port.AuditEntry) error {
	if s.closed {
		return errors.New("write after close")
	}
	s.entries += len(entries)
	return nil
}

func (s *recordingSink) Close() error {
	s.closed = true
	return nil
}

func TestApp_CloseFlushesThenClosesAuditSink(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sink := &recordingSink{}
	a := &app{
		db:    newDatabase(&config.Config{}, logger),
		sink:  sink,
		audit: audit.NewBatchLogger(sink, logger),
	}

	a.audit.Log(port.AuditEntry{Tool: "list_tables"})
	require.NoError(t, a.close())

	assert.Equal(t, 1, sink.entries)
	assert.True(t, sink.closed)
}

func TestHTTPTransport_ErrorsCarryKind(t *testing.T) {
	t.Setenv("FIREBIRD_DATABASE", "/data/test.fdb")
	t.Setenv("FIREBIRD_HOST", "127.0.0.1")
	t.Setenv("FIREBIRD_PORT", "1")

	cfg, err := config.Load(version)
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := buildApp(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.close() })

	srv := httpserver.New(httpserver.Config{RateLimitRPM: 600}, a.gateway, a.db, nil, logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantKind port.DiagnosticKind
	}{
		{"unknown tool", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"drop_everything"}}`, -32602, port.KindValidation},
		{"unknown prompt", `{"jsonrpc":"2.0","id":2,"method":"prompts/get","params":{"name":"firebird_poet"}}`, -32602, port.KindNotFound},
		{"parse error", `{"jsonrpc":`, -32700, port.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/mcp", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()

			var body struct {
				Error struct {
					Code int `json:"code"`
					Data struct {
						Kind port.DiagnosticKind `json:"kind"`
					} `json:"data"`
				} `json:"error"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.wantCode, body.Error.Code)
			assert.Equal(t, tt.wantKind, body.Error.Data.Kind)
		})
	}
}

func TestNewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fbmcp.log")
	cfg := &config.Config{ServerName: "fbmcp-test", LogFile: path}

	var stderr bytes.Buffer
	logger, closeLog := newLogger(cfg, &stderr)
	logger.Info("hello")
	closeLog()

	assert.Contains(t, stderr.String(), `"msg":"hello"`)
	assert.Contains(t, stderr.String(), `"service.name":"fbmcp-test"`)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func TestRenderDiagnosis_Failure(t *testing.T) {
	var out bytes.Buffer
	d := diagnosis{
		Adapter: port.AdapterStatus{
			Driver:       "firebirdsql",
			DriverLoaded: true,
			Config:       port.ConnectionConfig{Host: "db", Port: 3050, Database: "/x.fdb", User: "SYSDBA", Password: "****"},
			DSN:          "SYSDBA:****@db:3050//x.fdb",
		},
		Connection: &port.ConnectionStatus{Diagnostic: &port.DiagnosticReport{
			Kind:        port.KindAuthRejected,
			Message:     "Your user name and password are not defined",
			Hint:        "Check FIREBIRD_USER and FIREBIRD_PASSWORD",
			Remediation: []string{"Verify the credentials with isql"},
		}},
	}

	require.NoError(t, renderDiagnosis(&out, d))
	text := out.String()
	assert.Contains(t, text, "auth-rejected")
	assert.Contains(t, text, "Verify the credentials with isql")
	assert.Contains(t, text, "SYSDBA:****@db:3050//x.fdb")
}
