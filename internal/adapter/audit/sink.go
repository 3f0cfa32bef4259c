package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/guillermoBallester/fbmcp/internal/core/port"
)

// JSONLSink writes one JSON object per line.
type JSONLSink struct {
	mu sync.Mutex
	w  io.Writer
	c  io.Closer
}

func NewJSONLSink(w io.Writer) *JSONLSink {
	return &JSONLSink{w: w}
}

// NewFileSink appends to path, rotating at 50 MB and keeping 10 files.
func NewFileSink(path string) *JSONLSink {
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    50, // megabytes
		MaxBackups: 10,
		MaxAge:     30, // days
		Compress:   true,
	}
	return &JSONLSink{w: file, c: file}
}

func (s *JSONLSink) WriteBatch(_ context.Context, entries []port.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bw := bufio.NewWriter(s.w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("encoding audit entry: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing audit batch: %w", err)
	}
	return nil
}

// Close releases the underlying file, if the sink owns one.
func (s *JSONLSink) Close() error {
	if s.c == nil {
		return nil
	}
	return s.c.Close()
}
