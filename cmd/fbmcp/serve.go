package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/guillermoBallester/fbmcp/internal/adapter/auth"
	"github.com/guillermoBallester/fbmcp/internal/adapter/firebird"
	"github.com/guillermoBallester/fbmcp/internal/adapter/httpserver"
	"github.com/guillermoBallester/fbmcp/internal/config"
	"github.com/guillermoBallester/fbmcp/internal/core/port"
)

var errDriverUnavailable = errors.New("firebird driver is not available; set ALLOW_DEGRADED=true to start anyway")

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server (stdio by default, HTTP with TRANSPORT=http)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

func runServe(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, err := config.Load(version)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, closeLog := newLogger(cfg, stderr)
	defer closeLog()

	if !firebird.DriverLoaded() {
		if !cfg.AllowDegraded {
			logger.Error("driver unavailable", slog.String("db.system", "firebird"))
			return errDriverUnavailable
		}
		logger.Warn("driver unavailable, starting in degraded mode", slog.String("db.system", "firebird"))
	}

	a, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(); err != nil {
			logger.Error("shutdown cleanup failed", slog.String("error", err.Error()))
		}
	}()

	logger.Info("starting "+cfg.ServerName,
		slog.String("version", cfg.ServerVersion),
		slog.String("transport", cfg.Transport),
		slog.String("db.namespace", cfg.Firebird.Connection().RedactedDSN()),
		slog.String("language", a.catalog.Language()),
		slog.String("log_level", cfg.LogLevel.String()),
		slog.Bool("audit", a.audit != nil),
	)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// A failed probe is not fatal: the adapter reconnects on demand.
	if status := a.db.TestConnection(ctx); status.Connected {
		logger.Info("database reachable", slog.String("engine_version", status.EngineVersion), slog.String("latency", status.Latency))
	} else if status.Diagnostic != nil {
		logger.Warn("database unreachable at startup",
			slog.String("error.type", string(status.Diagnostic.Kind)),
			slog.String("error", status.Diagnostic.Message),
		)
	}

	if cfg.Transport == config.TransportHTTP {
		return serveHTTP(ctx, cfg, a, logger)
	}
	return serveStdio(ctx, a, stdin, stdout, logger)
}

// serveStdio returns when stdin closes or a signal arrives. A blocked read
// on stdin cannot be interrupted, so the signal path does not wait for it.
func serveStdio(ctx context.Context, a *app, stdin io.Reader, stdout io.Writer, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.gateway.Serve(ctx, stdin, stdout)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		return nil
	}
}

func serveHTTP(ctx context.Context, cfg *config.Config, a *app, logger *slog.Logger) error {
	var authenticator port.Authenticator
	if keys := auth.NewStaticAuthenticator(cfg.HTTP.APIKeys, logger); keys.Enabled() {
		authenticator = keys
	} else {
		logger.Warn("no HTTP_API_KEYS configured, /mcp is unauthenticated")
	}

	srv := httpserver.New(httpserver.Config{
		ListenAddr:        cfg.HTTP.ListenAddr,
		CORSOrigin:        cfg.HTTP.CORSOrigin,
		RateLimitRPM:      cfg.HTTP.RateLimitRPM,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}, a.gateway, a.db, authenticator, logger)

	// Second signal during shutdown = hard exit.
	go func() {
		<-ctx.Done()
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh
		logger.Warn("forced shutdown", slog.String("signal", sig.String()))
		os.Exit(1)
	}()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.ListenAndServe()
	})

	// Shutdown trigger: when ctx is cancelled (signal or listener failure),
	// gracefully stop the HTTP server.
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("shutdown complete")
	return nil
}
