// Package history keeps a local SQLite index of snapshot runs so the list
// and serve commands can answer without rescanning the output directory.
// The index is an accelerator, not a source of truth: losing it loses
// nothing, and recording into it must never fail a snapshot run.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/digitalnavigator-80/opsnap/internal/snapshot"
)

//go:embed migrations/001_initial_schema.sql
var migrationV1 string

// Record is one indexed snapshot run.
type Record struct {
	ID          string    `json:"id"`
	RunID       string    `json:"run_id"`
	Dir         string    `json:"dir"`
	ArchivePath string    `json:"archive_path"`
	FactFiles   int       `json:"fact_files"`
	CopiedPaths int       `json:"copied_paths"`
	Warnings    []string  `json:"warnings,omitempty"`
	DurationMS  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// Index is the SQLite-backed run index.
type Index struct {
	mu sync.Mutex
	db *sql.DB
}

// Open creates or opens the index database at path and applies migrations.
func Open(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	idx := &Index{db: db}
	if err := idx.migrate(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("running migrations: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return idx, nil
}

// Close closes the database connection.
func (i *Index) Close() error {
	if i.db != nil {
		return i.db.Close()
	}
	return nil
}

func (i *Index) migrate() error {
	var version int
	err := i.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		// table does not exist yet
		version = 0
	}

	if version < 1 {
		if _, err := i.db.Exec(migrationV1); err != nil {
			return fmt.Errorf("applying migration v1: %w", err)
		}
	}
	return nil
}

// Record indexes one completed snapshot run. A rerun with the same
// snapshot identifier replaces the previous row.
func (i *Index) Record(ctx context.Context, res *snapshot.Result) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	var warningsJSON []byte
	if len(res.Warnings) > 0 {
		var err error
		warningsJSON, err = json.Marshal(res.Warnings)
		if err != nil {
			return fmt.Errorf("marshaling warnings: %w", err)
		}
	}

	_, err := i.db.ExecContext(ctx, `
		INSERT INTO runs (
			id, run_id, dir, archive_path, fact_files, copied_paths,
			warnings, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			run_id = excluded.run_id,
			dir = excluded.dir,
			archive_path = excluded.archive_path,
			fact_files = excluded.fact_files,
			copied_paths = excluded.copied_paths,
			warnings = excluded.warnings,
			duration_ms = excluded.duration_ms,
			created_at = excluded.created_at
	`,
		res.ID, res.RunID, res.Dir, res.ArchivePath,
		res.FactFiles, len(res.CopiedPaths),
		nullableString(warningsJSON),
		res.Duration.Milliseconds(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", res.ID, err)
	}
	return nil
}

// List returns up to limit runs, newest first. limit <= 0 means no limit.
func (i *Index) List(ctx context.Context, limit int) ([]Record, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	query := `
		SELECT id, run_id, dir, archive_path, fact_files, copied_paths,
		       warnings, duration_ms, created_at
		FROM runs ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := i.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r            Record
			warningsJSON sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.RunID, &r.Dir, &r.ArchivePath,
			&r.FactFiles, &r.CopiedPaths, &warningsJSON, &r.DurationMS, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if warningsJSON.Valid && warningsJSON.String != "" {
			if err := json.Unmarshal([]byte(warningsJSON.String), &r.Warnings); err != nil {
				return nil, fmt.Errorf("parsing warnings for %s: %w", r.ID, err)
			}
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return records, nil
}

// Get returns one run by snapshot identifier.
func (i *Index) Get(ctx context.Context, id string) (*Record, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	var (
		r            Record
		warningsJSON sql.NullString
	)
	err := i.db.QueryRowContext(ctx, `
		SELECT id, run_id, dir, archive_path, fact_files, copied_paths,
		       warnings, duration_ms, created_at
		FROM runs WHERE id = ?`, id).
		Scan(&r.ID, &r.RunID, &r.Dir, &r.ArchivePath,
			&r.FactFiles, &r.CopiedPaths, &warningsJSON, &r.DurationMS, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying run %s: %w", id, err)
	}
	if warningsJSON.Valid && warningsJSON.String != "" {
		if err := json.Unmarshal([]byte(warningsJSON.String), &r.Warnings); err != nil {
			return nil, fmt.Errorf("parsing warnings for %s: %w", r.ID, err)
		}
	}
	return &r, nil
}

func nullableString(data []byte) any {
	if len(data) == 0 {
		return nil
	}
	return string(data)
}
