// Package store persists extraction records in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/MeKo-Tech/qdocr/internal/extract"
	"github.com/MeKo-Tech/qdocr/internal/pipeline"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	id              TEXT PRIMARY KEY,
	run_id          TEXT NOT NULL,
	file            TEXT NOT NULL,
	datetime        TEXT NOT NULL,
	decision_number TEXT,
	decision_date   TEXT,
	appointee_name  TEXT,
	position        TEXT,
	term            TEXT,
	company         TEXT,
	signer_name     TEXT,
	seal_present    INTEGER,
	seal_by_layout  INTEGER,
	fields_json     TEXT NOT NULL,
	created_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS records_run_id ON records(run_id);
`

// Store is a SQLite-backed record store.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Entry is one stored record.
type Entry struct {
	ID        string
	RunID     string
	Record    pipeline.Record
	CreatedAt time.Time
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("store path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; also keeps ":memory:" databases on a single connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Insert stores rec under runID and returns the new entry ID.
func (s *Store) Insert(ctx context.Context, runID string, rec pipeline.Record) (string, error) {
	return s.insert(ctx, s.db, runID, rec)
}

// InsertAll stores every record in one transaction.
func (s *Store) InsertAll(ctx context.Context, runID string, recs []pipeline.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	for _, rec := range recs {
		if _, err := s.insert(ctx, tx, runID, rec); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) insert(ctx context.Context, ex execer, runID string, rec pipeline.Record) (string, error) {
	if runID == "" {
		return "", errors.New("run ID is required")
	}
	fieldsJSON, err := json.Marshal(rec.Fields)
	if err != nil {
		return "", fmt.Errorf("failed to marshal fields: %w", err)
	}
	id := uuid.NewString()
	f := rec.Fields
	_, err = ex.ExecContext(ctx, `
		INSERT INTO records (
			id, run_id, file, datetime,
			decision_number, decision_date, appointee_name, position, term, company, signer_name,
			seal_present, seal_by_layout, fields_json, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, runID, rec.File, rec.Datetime,
		nullString(f.DecisionNumber), nullString(f.DecisionDate), nullString(f.AppointeeName),
		nullString(f.Position), nullString(f.Term), nullString(f.Company), nullString(f.SignerName),
		nullBool(f.SealPresent), nullBool(f.SealByLayout),
		string(fieldsJSON), s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert record for %s: %w", rec.File, err)
	}
	return id, nil
}

// List returns the records of one run in insertion order. An empty runID
// lists every run.
func (s *Store) List(ctx context.Context, runID string) ([]Entry, error) {
	query := `SELECT id, run_id, file, datetime, fields_json, created_at FROM records`
	var args []any
	if runID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	query += ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var (
			e          Entry
			fieldsJSON string
			created    string
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.Record.File, &e.Record.Datetime, &fieldsJSON, &created); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		var fields extract.Fields
		if err := json.Unmarshal([]byte(fieldsJSON), &fields); err != nil {
			return nil, fmt.Errorf("record %s has invalid fields: %w", e.ID, err)
		}
		e.Record.Fields = fields
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			e.CreatedAt = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Runs returns the distinct run IDs with their record counts.
func (s *Store) Runs(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, COUNT(*) FROM records GROUP BY run_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()
	out := map[string]int{}
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out[id] = n
	}
	return out, rows.Err()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}
