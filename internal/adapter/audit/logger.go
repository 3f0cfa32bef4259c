package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/guillermoBallester/fbmcp/internal/core/port"
)

const (
	defaultBatchSize    = 50
	defaultFlushTimeout = 5 * time.Second
	defaultChanBuffer   = 1000
	writeTimeout        = 10 * time.Second
)

// BatchLogger implements port.AuditLogger using a buffered channel and a
// background goroutine that hands batches to a sink.
type BatchLogger struct {
	sink       port.AuditSink
	ch         chan port.AuditEntry
	done       chan struct{}
	logger     *slog.Logger
	flushEvery time.Duration

	mu     sync.RWMutex
	closed bool
}

// NewBatchLogger starts the background writer. It flushes when the batch is
// full or the flush interval elapses, whichever comes first.
func NewBatchLogger(sink port.AuditSink, logger *slog.Logger) *BatchLogger {
	return newBatchLogger(sink, logger, defaultFlushTimeout)
}

func newBatchLogger(sink port.AuditSink, logger *slog.Logger, flushEvery time.Duration) *BatchLogger {
	l := &BatchLogger{
		sink:       sink,
		ch:         make(chan port.AuditEntry, defaultChanBuffer),
		done:       make(chan struct{}),
		logger:     logger,
		flushEvery: flushEvery,
	}
	go l.run()
	return l
}

// Log enqueues an audit entry. Non-blocking; drops the entry if the
// channel is full or the logger is closed.
func (l *BatchLogger) Log(entry port.AuditEntry) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}
	select {
	case l.ch <- entry:
	default:
		l.logger.Warn("audit channel full, dropping entry",
			slog.String("mcp.tool", entry.Tool),
			slog.String("mcp.call_id", entry.CallID),
		)
	}
}

// Close flushes what is queued and waits for the writer to exit. Calls
// after the first are no-ops.
func (l *BatchLogger) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	close(l.ch)
	l.mu.Unlock()
	<-l.done
}

func (l *BatchLogger) run() {
	defer close(l.done)

	batch := make([]port.AuditEntry, 0, defaultBatchSize)
	ticker := time.NewTicker(l.flushEvery)
	defer ticker.Stop()

	for {
		select {
		case entry, ok := <-l.ch:
			if !ok {
				if len(batch) > 0 {
					l.flush(batch)
				}
				return
			}
			batch = append(batch, entry)
			if len(batch) >= defaultBatchSize {
				l.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				l.flush(batch)
				batch = batch[:0]
			}
		}
	}
}

func (l *BatchLogger) flush(batch []port.AuditEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := l.sink.WriteBatch(ctx, batch); err != nil {
		l.logger.Error("audit flush failed",
			slog.Int("count", len(batch)),
			slog.String("error", err.Error()),
		)
	}
}
