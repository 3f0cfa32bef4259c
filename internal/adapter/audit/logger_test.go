package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guillermoBallester/fbmcp/internal/core/port"
)

// --- mock AuditSink ---

type mockSink struct {
	mu      sync.Mutex
	batches [][]port.AuditEntry
	err     error
}

func (m *mockSink) WriteBatch(_ context.Context, entries []port.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	cp := make([]port.AuditEntry, len(entries))
	copy(cp, entries)
	m.batches = append(m.batches, cp)
	return nil
}

func (m *mockSink) totalEntries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEntry(tool string) port.AuditEntry {
	return port.AuditEntry{
		Time:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		CallID:     "c-1",
		Tool:       tool,
		Input:      "SELECT * FROM ORDERS",
		DurationMs: 10,
	}
}

// --- tests ---

func TestBatchLogger_FlushOnClose(t *testing.T) {
	sink := &mockSink{}
	l := NewBatchLogger(sink, testLogger())

	l.Log(testEntry("list_tables"))
	l.Log(testEntry("execute_query"))
	l.Close()

	assert.Equal(t, 2, sink.totalEntries())
}

func TestBatchLogger_FlushOnBatchSize(t *testing.T) {
	sink := &mockSink{}
	l := NewBatchLogger(sink, testLogger())
	defer l.Close()

	for i := 0; i < defaultBatchSize; i++ {
		l.Log(testEntry("execute_query"))
	}

	require.Eventually(t, func() bool {
		return sink.totalEntries() >= defaultBatchSize
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBatchLogger_FlushOnTicker(t *testing.T) {
	sink := &mockSink{}
	l := newBatchLogger(sink, testLogger(), 50*time.Millisecond)
	defer l.Close()

	l.Log(testEntry("get_table_info"))

	require.Eventually(t, func() bool {
		return sink.totalEntries() > 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBatchLogger_DropOnFullChannel(t *testing.T) {
	sink := &mockSink{}
	l := NewBatchLogger(sink, testLogger())

	for i := 0; i < defaultChanBuffer+100; i++ {
		l.Log(testEntry("execute_query"))
	}
	l.Close()

	assert.GreaterOrEqual(t, sink.totalEntries(), defaultBatchSize)
}

func TestBatchLogger_SinkErrorDoesNotStop(t *testing.T) {
	sink := &mockSink{err: errors.New("disk full")}
	l := NewBatchLogger(sink, testLogger())

	l.Log(testEntry("execute_query"))
	l.Close()

	assert.Zero(t, sink.totalEntries())
}

func TestBatchLogger_LogAfterClose(t *testing.T) {
	sink := &mockSink{}
	l := NewBatchLogger(sink, testLogger())

	l.Log(testEntry("list_tables"))
	l.Close()
	l.Log(testEntry("execute_query"))
	l.Close()

	assert.Equal(t, 1, sink.totalEntries())
}

func TestJSONLSink_WriteBatch(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONLSink(&buf)

	failed := testEntry("execute_query")
	failed.IsError = true
	failed.ErrorKind = port.KindQueryFailed

	require.NoError(t, sink.WriteBatch(context.Background(), []port.AuditEntry{testEntry("list_tables"), failed}))
	require.NoError(t, sink.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var got port.AuditEntry
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &got))
	assert.Equal(t, failed, got)
	assert.NotContains(t, lines[0], "error_kind")
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	sink := NewFileSink(path)

	require.NoError(t, sink.WriteBatch(context.Background(), []port.AuditEntry{testEntry("list_tables")}))
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"tool":"list_tables"`)
	assert.Contains(t, string(data), `"input":"SELECT * FROM ORDERS"`)
}
