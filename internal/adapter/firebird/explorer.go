package firebird

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/guillermoBallester/fbmcp/internal/core/port"
)

type tableRow struct {
	Name        string         `db:"TABLE_NAME"`
	Description sql.NullString `db:"DESCRIPTION"`
}

func (r tableRow) info() port.TableInfo {
	return port.TableInfo{Name: r.Name, Comment: strings.TrimSpace(r.Description.String)}
}

type columnRow struct {
	Name      string         `db:"FIELD_NAME"`
	Position  sql.NullInt64  `db:"FIELD_POSITION"`
	FieldType int64          `db:"FIELD_TYPE"`
	SubType   sql.NullInt64  `db:"FIELD_SUB_TYPE"`
	Length    sql.NullInt64  `db:"FIELD_LENGTH"`
	CharLen   sql.NullInt64  `db:"CHAR_LENGTH"`
	Precision sql.NullInt64  `db:"FIELD_PRECISION"`
	Scale     sql.NullInt64  `db:"FIELD_SCALE"`
	NotNull   int64          `db:"NULL_FLAG"`
	Default   sql.NullString `db:"DEFAULT_SOURCE"`
}

type foreignKeyRow struct {
	Name      string `db:"CONSTRAINT_NAME"`
	Column    string `db:"FIELD_NAME"`
	RefTable  string `db:"REF_TABLE"`
	RefColumn string `db:"REF_FIELD"`
}

type indexRow struct {
	Name   string `db:"INDEX_NAME"`
	Unique int64  `db:"UNIQUE_FLAG"`
	Column string `db:"FIELD_NAME"`
}

// ListTables returns user table names ordered by name. Views and system
// relations are excluded.
func (d *Database) ListTables(ctx context.Context) ([]string, error) {
	infos, err := d.ListTableInfo(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(infos))
	for i, t := range infos {
		names[i] = t.Name
	}
	return names, nil
}

// ListTableInfo is ListTables with each table's description.
func (d *Database) ListTableInfo(ctx context.Context) ([]port.TableInfo, error) {
	db, err := d.handle(ctx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, d.opts.QueryTimeout)
	defer cancel()

	var rows []tableRow
	if err := db.SelectContext(ctx, &rows, queryListTables); err != nil {
		return nil, d.fail(err, classifyQuery)
	}
	out := make([]port.TableInfo, len(rows))
	for i, r := range rows {
		out[i] = r.info()
	}
	return out, nil
}

// GetTableInfo describes a table. The name is matched as given first, then
// upper-cased, since unquoted Firebird identifiers are stored in upper case.
func (d *Database) GetTableInfo(ctx context.Context, table string) (*port.TableDescriptor, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		return nil, port.NewDiagnostic(port.KindValidation, "table name is required")
	}

	db, err := d.handle(ctx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, d.opts.QueryTimeout)
	defer cancel()

	info, err := d.resolveTable(ctx, db, table)
	if err != nil {
		return nil, err
	}
	name := info.Name

	desc := &port.TableDescriptor{Name: name, Comment: info.Comment}
	if desc.Columns, err = d.fetchColumns(ctx, db, name); err != nil {
		return nil, err
	}
	desc.PrimaryKey = []string{}
	if err := db.SelectContext(ctx, &desc.PrimaryKey, queryPrimaryKey, name); err != nil {
		return nil, d.fail(err, classifyQuery)
	}
	if desc.ForeignKeys, err = d.fetchForeignKeys(ctx, db, name); err != nil {
		return nil, err
	}
	if desc.Indexes, err = d.fetchIndexes(ctx, db, name); err != nil {
		return nil, err
	}

	d.logger.Debug("table described", "db.collection.name", name, "columns", len(desc.Columns))
	return desc, nil
}

// resolveTable finds a user table by name. Views and system relations are
// not-found, matching what ListTables advertises.
func (d *Database) resolveTable(ctx context.Context, db *sqlx.DB, table string) (port.TableInfo, error) {
	candidates := []string{table}
	if upper := strings.ToUpper(table); upper != table {
		candidates = append(candidates, upper)
	}
	for _, name := range candidates {
		var rows []tableRow
		if err := db.SelectContext(ctx, &rows, queryFindTable, name); err != nil {
			return port.TableInfo{}, d.fail(err, classifyQuery)
		}
		if len(rows) > 0 {
			return rows[0].info(), nil
		}
	}
	return port.TableInfo{}, newReport(port.KindNotFound, "table "+table+" not found")
}

func (d *Database) fetchColumns(ctx context.Context, db *sqlx.DB, table string) ([]port.ColumnDescriptor, error) {
	var rows []columnRow
	if err := db.SelectContext(ctx, &rows, queryColumns, table); err != nil {
		return nil, d.fail(err, classifyQuery)
	}

	cols := make([]port.ColumnDescriptor, 0, len(rows))
	for _, r := range rows {
		col := port.ColumnDescriptor{
			Name:     r.Name,
			Type:     typeName(r.FieldType, r.SubType.Int64, r.Precision.Int64, r.Scale.Int64),
			Nullable: r.NotNull == 0,
			Position: int(r.Position.Int64) + 1,
			Default:  cleanDefault(r.Default.String),
		}
		if isCharacterType(r.FieldType) {
			if r.CharLen.Valid {
				col.Length = int(r.CharLen.Int64)
			} else {
				col.Length = int(r.Length.Int64)
			}
		}
		cols = append(cols, col)
	}
	return cols, nil
}

func (d *Database) fetchForeignKeys(ctx context.Context, db *sqlx.DB, table string) ([]port.ForeignKey, error) {
	var rows []foreignKeyRow
	if err := db.SelectContext(ctx, &rows, queryForeignKeys, table); err != nil {
		return nil, d.fail(err, classifyQuery)
	}
	fks := make([]port.ForeignKey, 0, len(rows))
	for _, r := range rows {
		fks = append(fks, port.ForeignKey(r))
	}
	return fks, nil
}

// fetchIndexes folds one row per index segment into indexes. Rows arrive
// ordered by index name and segment position.
func (d *Database) fetchIndexes(ctx context.Context, db *sqlx.DB, table string) ([]port.Index, error) {
	var rows []indexRow
	if err := db.SelectContext(ctx, &rows, queryIndexes, table); err != nil {
		return nil, d.fail(err, classifyQuery)
	}
	idxs := []port.Index{}
	for _, r := range rows {
		if n := len(idxs); n > 0 && idxs[n-1].Name == r.Name {
			idxs[n-1].Columns = append(idxs[n-1].Columns, r.Column)
			continue
		}
		idxs = append(idxs, port.Index{Name: r.Name, Columns: []string{r.Column}, Unique: r.Unique == 1})
	}
	return idxs, nil
}

// cleanDefault strips the DEFAULT keyword from RDB$DEFAULT_SOURCE.
func cleanDefault(src string) string {
	src = strings.TrimSpace(src)
	if len(src) >= 7 && strings.EqualFold(src[:7], "DEFAULT") {
		src = strings.TrimSpace(src[7:])
	}
	return src
}
