package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/guillermoBallester/fbmcp/internal/core/port"
)

const maxMessageSize = 16 << 20

// Serve runs the stdio transport: newline delimited JSON-RPC messages are
// read from in and handled strictly in arrival order, one response line per
// request is written to out. It returns nil when in reaches EOF.
func (g *Gateway) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	return g.serve(ctx, in, out, maxMessageSize)
}

func (g *Gateway) serve(ctx context.Context, in io.Reader, out io.Writer, limit int) error {
	ctx, release, err := g.Session(ctx, "stdio")
	if err != nil {
		return fmt.Errorf("registering stdio session: %w", err)
	}
	defer release()

	r := bufio.NewReaderSize(in, 64*1024)
	w := bufio.NewWriter(out)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	write := func(resp any) error {
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("writing response: %w", err)
		}
		if err := w.Flush(); err != nil {
			return fmt.Errorf("writing response: %w", err)
		}
		return nil
	}

	g.logger.Info("stdio transport ready")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, size, readErr := readMessage(r, limit)
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("reading stdin: %w", readErr)
		}

		switch {
		case size > limit:
			g.logger.Warn("oversize message discarded", slog.Int("size", size), slog.Int("limit", limit))
			resp := newError(nil, codeInvalidRequest, "invalid request",
				port.NewDiagnostic(port.KindValidation, "message of %d bytes exceeds the %d byte limit", size, limit))
			if err := write(resp); err != nil {
				return err
			}
		case len(line) > 0:
			if resp := g.HandleMessage(ctx, line); resp != nil {
				if err := write(resp); err != nil {
					return err
				}
			}
		}

		if readErr != nil {
			g.logger.Info("stdin closed, stopping")
			return nil
		}
	}
}

// readMessage returns the next line trimmed of whitespace, or nil for a
// blank line. A line longer than limit is consumed to its end without being
// buffered and reported by its size alone, so the caller can answer it and
// keep reading.
func readMessage(r *bufio.Reader, limit int) (json.RawMessage, int, error) {
	var buf []byte
	size, over := 0, false
	for {
		chunk, err := r.ReadSlice('\n')
		size += len(chunk)
		if !over {
			buf = append(buf, chunk...)
			if len(buf) > limit+2 { // room for \r\n
				over, buf = true, nil
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if over {
			return nil, size, err
		}
		line := bytes.TrimSpace(buf)
		if len(line) == 0 {
			return nil, 0, err
		}
		return json.RawMessage(line), len(line), err
	}
}
