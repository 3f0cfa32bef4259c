package httpserver

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/guillermoBallester/fbmcp/internal/core/port"
)

// apiKeyAuth requires a valid Bearer API key on the wrapped route and
// stores the resolved key on the request context. It is a no-op when no
// authenticator is configured.
func (s *Server) apiKeyAuth(next http.Handler) http.Handler {
	if s.authenticator == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")

		result, err := s.authenticator.Authenticate(r.Context(), token)
		if err != nil {
			s.logger.Error("mcp auth error", slog.String("error", err.Error()))
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		if result == nil {
			s.logger.Warn("rejected api key", slog.String("client.address", clientIP(r)))
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(port.ContextWithAuth(r.Context(), result)))
	})
}
