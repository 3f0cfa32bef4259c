package firebird

import (
	"context"
	"database/sql"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/nakagami/firebirdsql"
	"golang.org/x/sync/singleflight"

	"github.com/guillermoBallester/fbmcp/internal/core/port"
)

const (
	DriverName = "firebirdsql"
	dbSystem   = "firebird"
)

type Options struct {
	MaxRows      int
	QueryTimeout time.Duration
	ConnTimeout  time.Duration
	IdleTimeout  time.Duration
}

// Database is the Firebird implementation of port.Database. It owns a single
// lazily opened connection that is dropped after any fatal failure and
// reopened on the next call.
type Database struct {
	cfg    port.ConnectionConfig
	opts   Options
	logger *slog.Logger

	mu    sync.Mutex
	db    *sqlx.DB
	opens singleflight.Group

	openFn func(driverName, dsn string) (*sqlx.DB, error)
}

var _ port.Database = (*Database)(nil)

func New(cfg port.ConnectionConfig, opts Options, logger *slog.Logger) *Database {
	if opts.MaxRows <= 0 {
		opts.MaxRows = 1000
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = 30 * time.Second
	}
	if opts.ConnTimeout <= 0 {
		opts.ConnTimeout = 10 * time.Second
	}
	return &Database{
		cfg:    cfg,
		opts:   opts,
		logger: logger.With("db.system", dbSystem),
		openFn: sqlx.Open,
	}
}

// DriverLoaded reports whether the firebirdsql driver is registered.
func DriverLoaded() bool {
	return slices.Contains(sql.Drivers(), DriverName)
}

func (d *Database) current() *sqlx.DB {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.db
}

// handle returns the open connection, opening it if needed. Concurrent
// callers share a single open attempt.
func (d *Database) handle(ctx context.Context) (*sqlx.DB, error) {
	if db := d.current(); db != nil {
		return db, nil
	}
	if !DriverLoaded() {
		return nil, newReport(port.KindDriverUnavailable, "sql driver "+DriverName+" is not registered")
	}

	v, err, _ := d.opens.Do("open", func() (any, error) {
		if db := d.current(); db != nil {
			return db, nil
		}
		db, err := d.open(ctx)
		if err != nil {
			return nil, err
		}
		d.mu.Lock()
		d.db = db
		d.mu.Unlock()
		return db, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*sqlx.DB), nil
}

func (d *Database) open(ctx context.Context) (*sqlx.DB, error) {
	db, err := d.openFn(DriverName, d.cfg.DSN())
	if err != nil {
		report := classifyOpen(err)
		d.logger.Warn("firebird open failed", "error.type", string(report.Kind), "error", report.Message)
		return nil, report
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(d.opts.IdleTimeout)

	pingCtx, cancel := context.WithTimeout(ctx, d.opts.ConnTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		report := classifyOpen(err)
		d.logger.Warn("firebird connect failed",
			"server.address", d.cfg.Address(),
			"error.type", string(report.Kind),
			"error", report.Message,
		)
		return nil, report
	}

	d.logger.Info("firebird connection opened", "server.address", d.cfg.Address(), "db.namespace", d.cfg.Database)
	return db, nil
}

// fail classifies err and drops the handle when the failure is fatal.
func (d *Database) fail(err error, classify func(error) *port.DiagnosticReport) *port.DiagnosticReport {
	report := classify(err)
	if report.Kind.Fatal() {
		d.invalidate()
	}
	return report
}

func (d *Database) invalidate() {
	d.mu.Lock()
	db := d.db
	d.db = nil
	d.mu.Unlock()
	if db != nil {
		_ = db.Close()
		d.logger.Info("firebird connection dropped")
	}
}

// TestConnection opens the connection if needed and reads the engine
// version. Failures are reported in the returned status.
func (d *Database) TestConnection(ctx context.Context) *port.ConnectionStatus {
	start := time.Now()
	status := &port.ConnectionStatus{DSN: d.cfg.RedactedDSN()}

	db, err := d.handle(ctx)
	if err != nil {
		status.Diagnostic = classifyOpen(err)
		return status
	}

	ctx, cancel := context.WithTimeout(ctx, d.opts.ConnTimeout)
	defer cancel()

	var version sql.NullString
	if err := db.GetContext(ctx, &version, queryEngineVersion); err != nil {
		status.Diagnostic = d.fail(err, classifyQuery)
		return status
	}

	status.Connected = true
	status.EngineVersion = version.String
	status.Latency = time.Since(start).Round(time.Millisecond).String()
	return status
}

func (d *Database) Status() port.AdapterStatus {
	return port.AdapterStatus{
		Driver:       DriverName,
		DriverLoaded: DriverLoaded(),
		HandleOpen:   d.current() != nil,
		Config:       d.cfg.Redacted(),
		DSN:          d.cfg.RedactedDSN(),
	}
}

// Close releases the connection. The adapter remains usable and reopens on
// the next call.
func (d *Database) Close() error {
	d.mu.Lock()
	db := d.db
	d.db = nil
	d.mu.Unlock()
	if db == nil {
		return nil
	}
	return db.Close()
}
