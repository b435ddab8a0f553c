package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/pagesearch/internal/models"
)

// SQLiteRegistry implements Registry using SQLite.
type SQLiteRegistry struct {
	db *sql.DB
}

// NewSQLiteRegistry opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteRegistry(dbPath string) (*SQLiteRegistry, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteRegistry{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		name TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		pages INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		run_id TEXT NOT NULL DEFAULT '',
		indexed_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		documents INTEGER NOT NULL DEFAULT 0,
		pages INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`
	_, err := db.Exec(schema)
	return err
}

// Record upserts the document's latest outcome. IndexedAt is set when zero.
func (s *SQLiteRegistry) Record(ctx context.Context, st *models.DocumentStatus) error {
	if st.IndexedAt.IsZero() {
		st.IndexedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (name, status, pages, error, run_id, indexed_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   status = excluded.status, pages = excluded.pages, error = excluded.error,
		   run_id = excluded.run_id, indexed_at = excluded.indexed_at`,
		st.Name, st.Status, st.Pages, st.Error, st.RunID, st.IndexedAt,
	)
	if err != nil {
		return fmt.Errorf("record document %s: %w", st.Name, err)
	}
	return nil
}

// Get returns the entry for name.
func (s *SQLiteRegistry) Get(ctx context.Context, name string) (*models.DocumentStatus, error) {
	var st models.DocumentStatus
	err := s.db.QueryRowContext(ctx,
		`SELECT name, status, pages, error, run_id, indexed_at FROM documents WHERE name = ?`, name,
	).Scan(&st.Name, &st.Status, &st.Pages, &st.Error, &st.RunID, &st.IndexedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// List returns entries ordered by name. A non-positive limit returns all entries.
func (s *SQLiteRegistry) List(ctx context.Context, offset, limit int) ([]*models.DocumentStatus, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, status, pages, error, run_id, indexed_at
		 FROM documents ORDER BY name LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.DocumentStatus
	for rows.Next() {
		var st models.DocumentStatus
		if err := rows.Scan(&st.Name, &st.Status, &st.Pages, &st.Error, &st.RunID, &st.IndexedAt); err != nil {
			return nil, err
		}
		out = append(out, &st)
	}
	return out, rows.Err()
}

// Count returns the number of registered documents.
func (s *SQLiteRegistry) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// Reset removes every document entry.
func (s *SQLiteRegistry) Reset(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents`)
	return err
}

// StartRun opens a new re-index run and returns its ID.
func (s *SQLiteRegistry) StartRun(ctx context.Context) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at) VALUES (?, ?)`, id, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	return id, nil
}

// FinishRun stores the totals of run id.
func (s *SQLiteRegistry) FinishRun(ctx context.Context, id string, documents, pages, failed int) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, documents = ?, pages = ?, failed = ? WHERE id = ?`,
		time.Now().UTC(), documents, pages, failed, id,
	)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}

// LastRun returns the most recently started run.
func (s *SQLiteRegistry) LastRun(ctx context.Context) (*models.RunSummary, error) {
	var run models.RunSummary
	var finished sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, documents, pages, failed
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`,
	).Scan(&run.ID, &run.StartedAt, &finished, &run.Documents, &run.Pages, &run.Failed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		run.FinishedAt = &finished.Time
	}
	return &run, nil
}

// Close closes the database connection.
func (s *SQLiteRegistry) Close() error {
	return s.db.Close()
}
