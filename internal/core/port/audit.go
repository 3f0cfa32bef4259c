package port

import (
	"context"
	"time"
)

// AuditEntry records one tool call. Input is the SQL text or table name the
// call operated on; parameter values are never recorded.
type AuditEntry struct {
	Time       time.Time      `json:"time"`
	CallID     string         `json:"call_id"`
	KeyID      string         `json:"key_id,omitempty"`
	Tool       string         `json:"tool"`
	Input      string         `json:"input,omitempty"`
	DurationMs int64          `json:"duration_ms"`
	IsError    bool           `json:"is_error"`
	ErrorKind  DiagnosticKind `json:"error_kind,omitempty"`
}

// AuditLogger accepts audit entries for asynchronous persistence.
type AuditLogger interface {
	// Log enqueues an audit entry for writing. Non-blocking.
	Log(entry AuditEntry)

	// Close flushes remaining entries and stops the background writer.
	Close()
}

// AuditSink persists batches of audit entries.
type AuditSink interface {
	WriteBatch(ctx context.Context, entries []AuditEntry) error
}
