package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/guillermoBallester/fbmcp/internal/core/port"
)

// Config holds HTTP transport configuration.
type Config struct {
	ListenAddr        string
	CORSOrigin        string
	RateLimitRPM      float64
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
}

// MessageHandler answers one JSON-RPC message. A nil response means the
// message was a notification.
type MessageHandler interface {
	HandleMessage(ctx context.Context, raw json.RawMessage) mcp.JSONRPCMessage
}

// ConnectionTester backs the readiness probe.
type ConnectionTester interface {
	TestConnection(ctx context.Context) *port.ConnectionStatus
}

// Server exposes the gateway over HTTP with chi routing, middleware, and
// graceful shutdown.
type Server struct {
	httpServer *http.Server
	router     chi.Router
	logger     *slog.Logger
	cfg        Config
	limiter    *ipRateLimiter

	authenticator port.Authenticator
}

// New creates a Server wired to the given gateway and readiness check. A nil
// authenticator leaves /mcp open.
func New(cfg Config, gateway MessageHandler, db ConnectionTester, authenticator port.Authenticator, logger *slog.Logger) *Server {
	s := &Server{
		logger:        logger,
		cfg:           cfg,
		limiter:       newIPRateLimiter(cfg.RateLimitRPM),
		authenticator: authenticator,
	}

	s.setupRoutes(gateway, db)

	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	return s
}

// Handler returns the routed handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server and blocks until it stops.
// Returns nil if the server was shut down gracefully via Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("HTTP server listening",
		slog.String("server.address", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
