package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	maxBodyBytes = 16 << 20
	readyTimeout = 15 * time.Second
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleHealth returns a liveness probe handler. Always responds 200 if the
// server process is running.
func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// handleReady returns 200 when the database answers a connection test and
// 503 with the diagnostic otherwise.
func (s *Server) handleReady(db ConnectionTester) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		status := db.TestConnection(ctx)
		if !status.Connected {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

// handleMCP feeds the request body to the gateway. Notifications are
// acknowledged with 202 and no body.
func (s *Server) handleMCP(gateway MessageHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				http.Error(w, `{"error":"request body too large"}`, http.StatusRequestEntityTooLarge)
				return
			}
			s.logger.Warn("reading mcp request", slog.String("error", err.Error()))
			http.Error(w, `{"error":"bad request"}`, http.StatusBadRequest)
			return
		}

		resp := gateway.HandleMessage(r.Context(), body)
		if resp == nil {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
