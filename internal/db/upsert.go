package db

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/catastro-cli/internal/table"
)

// UpsertTable loads the rows of t into name, replacing rows that share the
// key column. The target must have a unique constraint on key (EnsureTable
// with the same key creates one). Rows sharing a key collapse to the last
// one, since ON CONFLICT cannot touch the same target row twice.
//  1. Creates a temp table shaped like the target
//  2. COPY rows into the temp table
//  3. INSERT INTO target SELECT ... FROM temp ON CONFLICT (key) DO UPDATE
func UpsertTable(ctx context.Context, pool Pool, name string, t *table.Table, key string) (int64, error) {
	if t.Len() == 0 {
		return 0, nil
	}
	if !slices.Contains(t.Columns, key) {
		return 0, eris.Errorf("db: upsert: key %q is not a column", key)
	}

	t = dedupeByKey(t, slices.Index(t.Columns, key))
	cols := ColumnNames(t.Columns)
	keyCol := ColumnName(key)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tempTable := "_tmp_upsert_" + strings.ReplaceAll(name, ".", "_")

	createSQL := fmt.Sprintf(
		"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		pgx.Identifier{tempTable}.Sanitize(),
		sanitizeTable(name),
	)
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: create temp table for %s", name)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{tempTable}, cols, pgx.CopyFromRows(cells(t))); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: COPY into temp table for %s", name)
	}

	var setClauses []string
	for _, c := range cols {
		if c == keyCol {
			continue
		}
		q := pgx.Identifier{c}.Sanitize()
		setClauses = append(setClauses, fmt.Sprintf("%s = EXCLUDED.%s", q, q))
	}

	colList := quoteAndJoin(cols)
	action := "DO NOTHING"
	if len(setClauses) > 0 {
		action = "DO UPDATE SET " + strings.Join(setClauses, ", ")
	}
	upsertSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) %s",
		sanitizeTable(name),
		colList,
		colList,
		pgx.Identifier{tempTable}.Sanitize(),
		pgx.Identifier{keyCol}.Sanitize(),
		action,
	)

	tag, err := tx.Exec(ctx, upsertSQL)
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert: INSERT ON CONFLICT for %s", name)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit tx")
	}
	return tag.RowsAffected(), nil
}

// dedupeByKey keeps one row per key value. A repeated key keeps the position
// of its first row and the values of its last.
func dedupeByKey(t *table.Table, keyIdx int) *table.Table {
	keyOf := func(row []string) string {
		if keyIdx < len(row) {
			return row[keyIdx]
		}
		return ""
	}

	seen := make(map[string]int, len(t.Rows))
	rows := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		k := keyOf(row)
		if i, ok := seen[k]; ok {
			rows[i] = row
			continue
		}
		seen[k] = len(rows)
		rows = append(rows, row)
	}
	if len(rows) == len(t.Rows) {
		return t
	}
	return &table.Table{Columns: t.Columns, Rows: rows}
}

func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
