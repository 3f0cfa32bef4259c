package port

import "context"

type ColumnDescriptor struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Length   int    `json:"length,omitempty"`
	Nullable bool   `json:"nullable"`
	Position int    `json:"position"`
	Default  string `json:"default,omitempty"`
}

type ForeignKey struct {
	Name      string `json:"name"`
	Column    string `json:"column"`
	RefTable  string `json:"ref_table"`
	RefColumn string `json:"ref_column"`
}

type Index struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
}

// TableInfo is a user table with its description, if one was set.
type TableInfo struct {
	Name    string `json:"name"`
	Comment string `json:"comment,omitempty"`
}

// TableDescriptor is built fresh on every introspection call.
type TableDescriptor struct {
	Name        string             `json:"name"`
	Comment     string             `json:"comment,omitempty"`
	Columns     []ColumnDescriptor `json:"columns"`
	PrimaryKey  []string           `json:"primary_key,omitempty"`
	ForeignKeys []ForeignKey       `json:"foreign_keys,omitempty"`
	Indexes     []Index            `json:"indexes,omitempty"`
}

// IsPrimaryKey reports whether column is part of the primary key.
func (t *TableDescriptor) IsPrimaryKey(column string) bool {
	for _, c := range t.PrimaryKey {
		if c == column {
			return true
		}
	}
	return false
}

// IndexedColumns returns the set of columns that lead at least one index.
// Only the first segment counts since Firebird cannot use a compound index
// for a lookup on a later segment alone.
func (t *TableDescriptor) IndexedColumns() map[string]bool {
	out := make(map[string]bool, len(t.Indexes))
	for _, idx := range t.Indexes {
		if len(idx.Columns) > 0 {
			out[idx.Columns[0]] = true
		}
	}
	return out
}

type SchemaExplorer interface {
	ListTables(ctx context.Context) ([]string, error)
	ListTableInfo(ctx context.Context) ([]TableInfo, error)
	GetTableInfo(ctx context.Context, table string) (*TableDescriptor, error)
}
