package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/okian/stopwatch/internal/domain/persistence"
)

// SQLiteStore keeps each record as a JSON document keyed by id.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS stopwatches (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			objective TEXT,
			data TEXT NOT NULL,
			created_ms INTEGER NOT NULL,
			updated_ms INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stopwatches_created ON stopwatches(created_ms, id)`,
		`CREATE INDEX IF NOT EXISTS idx_stopwatches_objective ON stopwatches(objective)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, rec persistence.Record) error {
	defer observe(DriverSQLite, "save", time.Now())
	if rec.ID == "" {
		return ErrEmptyID
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal stopwatch %s: %w", rec.ID, err)
	}
	var objective sql.NullString
	if rec.Objective != nil {
		objective = sql.NullString{String: rec.Objective.Type, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
	INSERT INTO stopwatches (id, title, objective, data, created_ms, updated_ms)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title=excluded.title,
		objective=excluded.objective,
		data=excluded.data,
		updated_ms=excluded.updated_ms;
	`, rec.ID, rec.Annotation.Title, objective, string(data),
		rec.Metadata.Creation.UnixMilli(), rec.Metadata.LastModification.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save stopwatch %s: %w", rec.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (persistence.Record, error) {
	defer observe(DriverSQLite, "get", time.Now())
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM stopwatches WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.Record{}, ErrNotFound
	}
	if err != nil {
		return persistence.Record{}, fmt.Errorf("failed to get stopwatch %s: %w", id, err)
	}
	return decodeRecord(data)
}

func (s *SQLiteStore) List(ctx context.Context) ([]persistence.Record, error) {
	defer observe(DriverSQLite, "list", time.Now())
	rows, err := s.db.QueryContext(ctx, `SELECT id, data FROM stopwatches ORDER BY created_ms, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list stopwatches: %w", err)
	}
	defer rows.Close()

	var (
		out     []persistence.Record
		corrupt []error
	)
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan stopwatch: %w", err)
		}
		rec, err := decodeRecord(data)
		if err != nil {
			corrupt = append(corrupt, fmt.Errorf("%s: %w", id, err))
			continue
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list stopwatches: %w", err)
	}
	if len(corrupt) > 0 {
		return out, fmt.Errorf("%w: %w", ErrCorruptRecord, errors.Join(corrupt...))
	}
	return out, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	defer observe(DriverSQLite, "delete", time.Now())
	res, err := s.db.ExecContext(ctx, `DELETE FROM stopwatches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete stopwatch %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete stopwatch %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func decodeRecord(data string) (persistence.Record, error) {
	var rec persistence.Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return persistence.Record{}, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	return rec, nil
}
