package service

import (
	"context"
	"log/slog"

	"github.com/guillermoBallester/fbmcp/internal/core/domain"
	"github.com/guillermoBallester/fbmcp/internal/core/port"
)

// QueryOutcome pairs the execution result with the advisory computed for
// the same statement.
type QueryOutcome struct {
	Result   *port.QueryResult     `json:"-"`
	Advisory domain.AdvisoryResult `json:"advisory"`
}

// QueryService orchestrates SQL validation and analysis (domain) and
// execution (infrastructure).
type QueryService struct {
	validator *domain.QueryValidator
	executor  port.QueryExecutor
	explorer  port.SchemaExplorer
	logger    *slog.Logger
}

// NewQueryService builds the service. explorer may be nil, in which case the
// unindexed join check is skipped.
func NewQueryService(validator *domain.QueryValidator, executor port.QueryExecutor, explorer port.SchemaExplorer, logger *slog.Logger) *QueryService {
	return &QueryService{
		validator: validator,
		executor:  executor,
		explorer:  explorer,
		logger:    logger,
	}
}

// Execute validates the statement, delegates to the executor and attaches
// the advisory. Validation failures never reach the executor, and index
// hints are only fetched after a successful execution.
func (s *QueryService) Execute(ctx context.Context, req port.QueryRequest) (*QueryOutcome, error) {
	if _, err := s.validator.Validate(req.SQL); err != nil {
		return nil, port.NewDiagnostic(port.KindValidation, "%s", err)
	}

	result, err := s.executor.ExecuteQuery(ctx, req)
	if err != nil {
		return nil, err
	}
	return &QueryOutcome{Result: result, Advisory: s.Analyze(ctx, req.SQL)}, nil
}

// Analyze runs the advisory analyzer, supplying index hints for joined
// tables when the explorer can provide them.
func (s *QueryService) Analyze(ctx context.Context, sql string) domain.AdvisoryResult {
	hints := s.indexHints(ctx, sql)
	if hints == nil {
		return domain.Analyze(sql)
	}
	return domain.Analyze(sql, domain.WithSchema(hints))
}

// indexHints is best effort: tables that cannot be described are left out.
func (s *QueryService) indexHints(ctx context.Context, sql string) domain.IndexHints {
	if s.explorer == nil {
		return nil
	}
	tables := domain.JoinedTables(sql)
	if len(tables) == 0 {
		return nil
	}

	hints := domain.IndexHints{}
	for _, table := range tables {
		desc, err := s.explorer.GetTableInfo(ctx, table)
		if err != nil {
			s.logger.Debug("index hints unavailable", "db.collection.name", table, "error", err)
			continue
		}
		cols := append([]string{}, desc.PrimaryKey...)
		for col := range desc.IndexedColumns() {
			cols = append(cols, col)
		}
		hints[table] = cols
	}
	if len(hints) == 0 {
		return nil
	}
	return hints
}
