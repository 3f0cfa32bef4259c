package firebird

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/guillermoBallester/fbmcp/internal/core/domain"
	"github.com/guillermoBallester/fbmcp/internal/core/port"
)

// ExecuteQuery runs one statement in its own transaction. Row-returning
// statements produce a RowSet capped at MaxRows, everything else an
// affected-row count.
func (d *Database) ExecuteQuery(ctx context.Context, req port.QueryRequest) (*port.QueryResult, error) {
	params, err := normalizeParams(req.Params)
	if err != nil {
		return nil, err
	}
	stmt := domain.Classify(req.SQL)

	db, err := d.handle(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, d.opts.QueryTimeout)
	defer cancel()

	start := time.Now()
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, d.fail(err, classifyQuery)
	}
	defer func() { _ = tx.Rollback() }()

	result := &port.QueryResult{}
	if stmt.ReturnsRows {
		result.RowSet, err = d.queryRows(ctx, tx, req.SQL, params)
	} else {
		result.Affected, err = exec(ctx, tx, req.SQL, params)
	}
	if err != nil {
		return nil, d.fail(err, classifyQuery)
	}
	if err := tx.Commit(); err != nil {
		return nil, d.fail(err, classifyQuery)
	}

	attrs := []any{
		"db.operation.name", string(stmt.Operation),
		"duration", time.Since(start),
	}
	if result.RowSet != nil {
		attrs = append(attrs, "db.response.rows", result.RowSet.RowCount, "truncated", result.RowSet.Truncated)
	} else {
		attrs = append(attrs, "db.response.rows", result.Affected.Affected)
	}
	d.logger.Debug("statement executed", attrs...)
	return result, nil
}

func (d *Database) queryRows(ctx context.Context, tx *sqlx.Tx, query string, params []any) (*port.RowSet, error) {
	rows, err := tx.QueryxContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	rs := &port.RowSet{Rows: []map[string]any{}, Columns: cols}
	for rows.Next() {
		if len(rs.Rows) >= d.opts.MaxRows {
			rs.Truncated = true
			break
		}
		row := make(map[string]any, len(cols))
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		rs.Rows = append(rs.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rs.RowCount = len(rs.Rows)
	return rs, nil
}

func exec(ctx context.Context, tx *sqlx.Tx, query string, params []any) (*port.AffectedCount, error) {
	res, err := tx.ExecContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		// DDL reports no count.
		n = 0
	}
	return &port.AffectedCount{Affected: n}, nil
}

// maxExactFloat is the largest integer a float64 holds without loss.
const maxExactFloat = 1 << 53

// normalizeParams converts JSON-decoded arguments into driver values.
// Integral numbers bind as BIGINT rather than DOUBLE PRECISION.
func normalizeParams(params []any) ([]any, error) {
	out := make([]any, len(params))
	for i, p := range params {
		switch v := p.(type) {
		case nil, string, bool, int, int32, int64, time.Time:
			out[i] = v
		case float64:
			if v == math.Trunc(v) && math.Abs(v) <= maxExactFloat {
				out[i] = int64(v)
			} else {
				out[i] = v
			}
		case json.Number:
			if n, err := v.Int64(); err == nil {
				out[i] = n
			} else if f, err := v.Float64(); err == nil {
				out[i] = f
			} else {
				return nil, port.NewDiagnostic(port.KindValidation, "parameter %d is not a valid number: %q", i+1, v.String())
			}
		default:
			return nil, port.NewDiagnostic(port.KindValidation,
				"parameter %d has unsupported type %T: only strings, numbers, booleans and null can be bound", i+1, p)
		}
	}
	return out, nil
}
