package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/guillermoBallester/fbmcp/internal/adapter/audit"
	"github.com/guillermoBallester/fbmcp/internal/adapter/firebird"
	mcpadapter "github.com/guillermoBallester/fbmcp/internal/adapter/mcp"
	"github.com/guillermoBallester/fbmcp/internal/config"
	"github.com/guillermoBallester/fbmcp/internal/core/domain"
	"github.com/guillermoBallester/fbmcp/internal/core/port"
	"github.com/guillermoBallester/fbmcp/internal/core/service"
	"github.com/guillermoBallester/fbmcp/internal/i18n"
)

type auditSink interface {
	port.AuditSink
	Close() error
}

type app struct {
	catalog *i18n.Catalog
	db      *firebird.Database
	gateway *mcpadapter.Gateway
	audit   *audit.BatchLogger
	sink    auditSink
}

// close releases the pool, flushes the audit trail and closes its file.
func (a *app) close() error {
	_ = a.db.Close()
	if a.audit == nil {
		return nil
	}
	a.audit.Close()
	if err := a.sink.Close(); err != nil {
		return fmt.Errorf("closing audit log: %w", err)
	}
	return nil
}

func newDatabase(cfg *config.Config, logger *slog.Logger) *firebird.Database {
	return firebird.New(cfg.Firebird.Connection(), firebird.Options{
		MaxRows:      cfg.MaxRows,
		QueryTimeout: cfg.QueryTimeout,
		ConnTimeout:  cfg.ConnTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}, logger)
}

func buildApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	catalog, err := i18n.Load(cfg.Language)
	if err != nil {
		return nil, fmt.Errorf("loading messages: %w", err)
	}

	db := newDatabase(cfg, logger)

	explorer := service.NewExplorerService(db)
	query := service.NewQueryService(domain.NewQueryValidator(), db, db, logger)
	prompts := service.NewPromptService(catalog, db, cfg.Firebird.Connection(), logger)
	guidance := service.NewGuidance(cfg.Guidance, prompts, catalog)

	a := &app{catalog: catalog, db: db}

	var auditLogger port.AuditLogger
	if cfg.AuditLogFile != "" {
		sink := audit.NewFileSink(cfg.AuditLogFile)
		a.sink, a.audit = sink, audit.NewBatchLogger(sink, logger)
		auditLogger = a.audit
	}

	gateway := mcpadapter.NewGateway(mcpadapter.Deps{
		Name:      cfg.ServerName,
		Version:   cfg.ServerVersion,
		Transport: cfg.Transport,
		Started:   time.Now(),
		Catalog:   catalog,
		Database:  db,
		Explorer:  explorer,
		Query:     query,
		Prompts:   prompts,
		Guidance:  guidance,
		Logger:    logger,
		Audit:     auditLogger,
	})

	a.gateway = gateway
	return a, nil
}
