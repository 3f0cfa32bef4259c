package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (s *Server) setupRoutes(gateway MessageHandler, db ConnectionTester) {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimw.Recoverer)

	if s.cfg.CORSOrigin != "" {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{s.cfg.CORSOrigin},
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "Mcp-Session-Id"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	// Health probes
	r.Get("/health", s.handleHealth())
	r.Get("/ready", s.handleReady(db))

	// JSON-RPC endpoint, one message per POST.
	r.With(s.limiter.Middleware, s.apiKeyAuth).Post("/mcp", s.handleMCP(gateway))

	s.router = r
}

// requestLogger logs one line per request once the response is written.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		level := slog.LevelDebug
		if ww.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.logger.LogAttrs(r.Context(), level, "http request",
			slog.String("http.request.method", r.Method),
			slog.String("url.path", r.URL.Path),
			slog.Int("http.response.status_code", ww.Status()),
			slog.Int("http.response.body.size", ww.BytesWritten()),
			slog.String("request_id", chimw.GetReqID(r.Context())),
			slog.Duration("duration", time.Since(start)),
		)
	})
}
