package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"hindsight/internal/config"
)

// Recording is one exported replay tracked by the catalog.
type Recording struct {
	ID              int64
	UUID            string
	Filename        string
	Path            string
	CreatedAt       time.Time
	WindowSeconds   int
	ChunkCount      int
	DurationSeconds float64
	SizeBytes       int64
}

// Store manages recording persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the catalog database and applies
// migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.Paths.DatabasePath
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

const recordingColumns = `id, uuid, filename, path, created_at, window_seconds, chunk_count, duration_seconds, size_bytes`

// Add inserts a recording and returns the stored row.
func (s *Store) Add(ctx context.Context, rec Recording) (*Recording, error) {
	if rec.UUID == "" {
		return nil, errors.New("recording uuid required")
	}
	if rec.Path == "" {
		return nil, errors.New("recording path required")
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO recordings (
            uuid, filename, path, created_at,
            window_seconds, chunk_count, duration_seconds, size_bytes
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.UUID,
		rec.Filename,
		rec.Path,
		createdAt.Format(time.RFC3339Nano),
		rec.WindowSeconds,
		rec.ChunkCount,
		rec.DurationSeconds,
		rec.SizeBytes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert recording: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a recording by identifier. It returns nil when no row
// matches.
func (s *Store) GetByID(ctx context.Context, id int64) (*Recording, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordingColumns+` FROM recordings WHERE id = ?`, id)
	rec, err := scanRecording(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recording: %w", err)
	}
	return rec, nil
}

// List returns recordings newest first. A limit <= 0 returns every row.
func (s *Store) List(ctx context.Context, limit int) ([]Recording, error) {
	query := `SELECT ` + recordingColumns + ` FROM recordings ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	defer rows.Close()

	out := make([]Recording, 0)
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recordings: %w", err)
	}
	return out, nil
}

// Remove deletes the recording row. It reports whether a row was removed;
// deleting the artifact file is the caller's decision.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM recordings WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete recording: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Count reports the number of catalogued recordings.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM recordings`)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count recordings: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecording(row rowScanner) (*Recording, error) {
	var rec Recording
	var createdAt string
	if err := row.Scan(
		&rec.ID,
		&rec.UUID,
		&rec.Filename,
		&rec.Path,
		&createdAt,
		&rec.WindowSeconds,
		&rec.ChunkCount,
		&rec.DurationSeconds,
		&rec.SizeBytes,
	); err != nil {
		return nil, err
	}
	parsed, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	rec.CreatedAt = parsed
	return &rec, nil
}
