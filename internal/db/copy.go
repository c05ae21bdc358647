// Package db exports record tables to PostgreSQL.
package db

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"

	"github.com/sells-group/catastro-cli/internal/table"
)

// Pool is the subset of *pgxpool.Pool used by the exporters.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// EnsureTable creates name with one text column per table column unless it
// already exists. A non-empty key becomes the primary key.
func EnsureTable(ctx context.Context, pool Pool, name string, t *table.Table, key string) error {
	cols := ColumnNames(t.Columns)
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = pgx.Identifier{c}.Sanitize() + " TEXT"
	}
	if key != "" {
		if !slices.Contains(t.Columns, key) {
			return eris.Errorf("db: create table %s: key %q is not a column", name, key)
		}
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", pgx.Identifier{ColumnName(key)}.Sanitize()))
	}

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", sanitizeTable(name), strings.Join(defs, ", "))
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return eris.Wrapf(err, "db: create table %s", name)
	}
	return nil
}

// CopyTable bulk-inserts the rows of t into name using the COPY protocol.
func CopyTable(ctx context.Context, pool Pool, name string, t *table.Table) (int64, error) {
	if t.Len() == 0 {
		return 0, nil
	}

	n, err := pool.CopyFrom(ctx, identifier(name), ColumnNames(t.Columns), pgx.CopyFromRows(cells(t)))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", name)
	}
	return n, nil
}

// ColumnNames maps record column names to snake_case SQL column names.
func ColumnNames(columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = ColumnName(c)
	}
	return out
}

// ColumnName converts "ProvinceCodeINE" to "province_code_ine".
func ColumnName(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func cells(t *table.Table) [][]any {
	rows := make([][]any, len(t.Rows))
	for i, row := range t.Rows {
		vals := make([]any, len(t.Columns))
		for j := range t.Columns {
			if j < len(row) {
				vals[j] = row[j]
			} else {
				vals[j] = ""
			}
		}
		rows[i] = vals
	}
	return rows
}

// identifier splits a schema-qualified name like "public.properties".
func identifier(name string) pgx.Identifier {
	if schema, tbl, ok := strings.Cut(name, "."); ok {
		return pgx.Identifier{schema, tbl}
	}
	return pgx.Identifier{name}
}

func sanitizeTable(name string) string {
	return identifier(name).Sanitize()
}
