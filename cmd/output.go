package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/sells-group/catastro-cli/internal/db"
	"github.com/sells-group/catastro-cli/internal/table"
)

// emit writes tbl in the selected format and, with --pg-table, loads it into
// Postgres. name labels the XLSX sheet.
func emit(cmd *cobra.Command, name string, tbl *table.Table) error {
	path, _ := cmd.Flags().GetString("output")
	format, err := outputFormat(cmd, path)
	if err != nil {
		return err
	}

	if err := writeTable(cmd.OutOrStdout(), path, name, tbl, format); err != nil {
		return err
	}

	pgTable, _ := cmd.Flags().GetString("pg-table")
	if pgTable == "" {
		return nil
	}
	pgKey, _ := cmd.Flags().GetString("pg-key")
	return exportPostgres(cmd.Context(), pgTable, pgKey, tbl)
}

// createFile opens output files; replaced in tests.
var createFile = func(path string) (io.WriteCloser, error) { return os.Create(path) }

func writeTable(stdout io.Writer, path, name string, tbl *table.Table, format table.Format) (err error) {
	if format == table.FormatXLSX {
		if path == "" {
			return eris.New("output: xlsx needs --output FILE")
		}
		return table.WriteXLSX(path, name, tbl)
	}
	if path == "" {
		return table.Write(stdout, tbl, format)
	}

	f, err := createFile(path)
	if err != nil {
		return eris.Wrapf(err, "output: create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = eris.Wrapf(cerr, "output: close %s", path)
		}
	}()
	return table.Write(f, tbl, format)
}

// outputFormat resolves --format, falling back to the --output extension
// and then to a terminal table or CSV.
func outputFormat(cmd *cobra.Command, path string) (table.Format, error) {
	if s, _ := cmd.Flags().GetString("format"); s != "" {
		return table.ParseFormat(s)
	}
	if path != "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".xlsx":
			return table.FormatXLSX, nil
		case ".json":
			return table.FormatJSON, nil
		case ".yaml", ".yml":
			return table.FormatYAML, nil
		}
		return table.FormatCSV, nil
	}
	if isTerminal(cmd.OutOrStdout()) {
		return table.FormatTable, nil
	}
	return table.FormatCSV, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func exportPostgres(ctx context.Context, name, key string, tbl *table.Table) error {
	if err := cfg.Validate("export"); err != nil {
		return err
	}

	pool, err := pgxpool.New(ctx, cfg.Postgres.DatabaseURL)
	if err != nil {
		return eris.Wrap(err, "export: create connection pool")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return eris.Wrap(err, "export: ping database")
	}

	if err := db.EnsureTable(ctx, pool, name, tbl, key); err != nil {
		return err
	}

	var n int64
	if key == "" {
		n, err = db.CopyTable(ctx, pool, name, tbl)
	} else {
		n, err = db.UpsertTable(ctx, pool, name, tbl, key)
	}
	if err != nil {
		return err
	}

	zap.L().Info("export: rows loaded", zap.String("table", name), zap.Int64("rows", n))
	return nil
}
