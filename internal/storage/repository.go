package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ocorrencias/internal/core"
	"ocorrencias/internal/dataset"
	"ocorrencias/internal/dataset/frame"
	applog "ocorrencias/internal/log"

	_ "modernc.org/sqlite"
)

// columns are stored in this order; it is also the header of loaded datasets.
var columns = []string{
	core.ColEvento, core.ColFeminino, core.ColMasculino, core.ColTotalVitimas,
	core.ColMunicipio, core.ColCodigoMunicipio, core.ColAno, core.ColMes,
}

type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ dataset.Source = (*SQLiteRepository)(nil)
	_ dataset.Writer = (*Importer)(nil)
)

// ImportRun records one replacement of the occurrence table.
type ImportRun struct {
	Source     string
	Rows       int
	ImportedAt time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Load reads the whole table in insertion order. Values go through the
// same frame coercion and schema checks as a CSV file.
func (r *SQLiteRepository) Load(ctx context.Context) (*core.Dataset, error) {
	q := fmt.Sprintf("SELECT %s FROM ocorrencias ORDER BY id", strings.Join(columns, ", "))
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, dataset.Error.Wrap(fmt.Errorf("query occurrences: %w", err))
	}
	defer rows.Close()

	records := [][]string{append([]string(nil), columns...)}
	for rows.Next() {
		rec := make([]string, len(columns))
		dest := make([]any, len(columns))
		for i := range rec {
			dest[i] = &rec[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, dataset.Error.Wrap(fmt.Errorf("scan occurrence: %w", err))
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, dataset.Error.Wrap(fmt.Errorf("iterate occurrences: %w", err))
	}

	ds, err := frame.FromRecords(records)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Loaded occurrences from SQLite",
		applog.FieldComponent, applog.ComponentStorage,
		applog.FieldRows, ds.Len())
	return ds, nil
}

// Importer writes datasets into the repository, logging each replacement
// in import_runs under its source.
type Importer struct {
	repo   *SQLiteRepository
	source string
}

func (r *SQLiteRepository) Importer(source string) *Importer {
	return &Importer{repo: r, source: source}
}

// ReplaceOccurrences truncates the table and inserts ds in one transaction.
func (i *Importer) ReplaceOccurrences(ctx context.Context, ds *core.Dataset) (int, error) {
	return i.repo.replace(ctx, ds, i.source)
}

func (r *SQLiteRepository) replace(ctx context.Context, ds *core.Dataset, source string) (n int, err error) {
	if ds == nil {
		return 0, errors.New("nil dataset")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM ocorrencias"); err != nil {
		return 0, fmt.Errorf("clear occurrences: %w", err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO ocorrencias (%s) VALUES (%s)", strings.Join(columns, ", "), placeholders))
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, o := range ds.Rows {
		if _, err = stmt.ExecContext(ctx,
			o.Evento, o.Feminino, o.Masculino, o.TotalVitimas,
			o.Municipio, o.CodigoMunicipio, o.Ano, o.Mes,
		); err != nil {
			return 0, fmt.Errorf("insert row %d: %w", i+1, err)
		}
	}

	if _, err = tx.ExecContext(ctx,
		"INSERT INTO import_runs (source, rows) VALUES (?, ?)", source, len(ds.Rows)); err != nil {
		return 0, fmt.Errorf("record import run: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Occurrences replaced in SQLite",
		applog.FieldComponent, applog.ComponentStorage,
		applog.FieldRows, len(ds.Rows),
		"source", source)
	return len(ds.Rows), nil
}

// LastImport returns the most recent import run, or sql.ErrNoRows.
func (r *SQLiteRepository) LastImport(ctx context.Context) (ImportRun, error) {
	var run ImportRun
	err := r.db.QueryRowContext(ctx,
		"SELECT source, rows, imported_at FROM import_runs ORDER BY id DESC LIMIT 1",
	).Scan(&run.Source, &run.Rows, &run.ImportedAt)
	if err != nil {
		return ImportRun{}, err
	}
	return run, nil
}
