package port

import "context"

// QueryRequest carries SQL text and positional parameters bound to `?`
// placeholders. Params are never spliced into the SQL text.
type QueryRequest struct {
	SQL    string
	Params []any
}

type RowSet struct {
	Rows      []map[string]any `json:"rows"`
	RowCount  int              `json:"rowCount"`
	Columns   []string         `json:"columns,omitempty"`
	Truncated bool             `json:"truncated,omitempty"`
}

type AffectedCount struct {
	Affected int64 `json:"affected"`
}

// QueryResult holds exactly one of RowSet or Affected. Which one is decided
// by statement classification, not by the caller.
type QueryResult struct {
	RowSet   *RowSet
	Affected *AffectedCount
}

// Payload returns the populated variant for serialization.
func (r *QueryResult) Payload() any {
	if r.RowSet != nil {
		return r.RowSet
	}
	return r.Affected
}

type QueryExecutor interface {
	ExecuteQuery(ctx context.Context, req QueryRequest) (*QueryResult, error)
}
