// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS generation_history (
	id                TEXT PRIMARY KEY,
	created_at        TIMESTAMPTZ NOT NULL,
	operation         TEXT NOT NULL,
	provider          TEXT NOT NULL,
	model             TEXT NOT NULL,
	prompt            TEXT NOT NULL,
	response          TEXT NOT NULL,
	prompt_tokens     INTEGER NOT NULL DEFAULT 0,
	completion_tokens INTEGER NOT NULL DEFAULT 0,
	total_tokens      INTEGER NOT NULL DEFAULT 0,
	duration_ms       BIGINT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_generation_history_created_at ON generation_history (created_at DESC);`

const selectColumns = `id, created_at, operation, provider, model, prompt, response,
	prompt_tokens, completion_tokens, total_tokens, duration_ms`

// PostgresStore persists records in the generation_history table, keeping
// the newest limit rows.
type PostgresStore struct {
	db    *sql.DB
	limit int
}

var _ Store = (*PostgresStore)(nil)

// OpenPostgres opens databaseURL with lib/pq and creates the table if needed.
func OpenPostgres(ctx context.Context, databaseURL string, limit int) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := NewPostgresStore(db, limit)
	if err := s.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore wraps an open database handle holding at most limit
// records (500 if <= 0).
func NewPostgresStore(db *sql.DB, limit int) *PostgresStore {
	if limit <= 0 {
		limit = 500
	}
	return &PostgresStore{db: db, limit: limit}
}

// EnsureSchema creates the history table and index.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create history schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Add(ctx context.Context, rec *Record) error {
	if err := prepare(rec); err != nil {
		return err
	}
	query := `
		INSERT INTO generation_history (
			id, created_at, operation, provider, model, prompt, response,
			prompt_tokens, completion_tokens, total_tokens, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.CreatedAt, rec.Operation, rec.Provider, rec.Model, rec.Prompt, rec.Response,
		rec.PromptTokens, rec.CompletionTokens, rec.TotalTokens, rec.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("failed to save history record: %w", err)
	}

	trim := `
		DELETE FROM generation_history
		WHERE id NOT IN (
			SELECT id FROM generation_history ORDER BY created_at DESC, id DESC LIMIT $1
		)`
	if _, err := s.db.ExecContext(ctx, trim, s.limit); err != nil {
		return fmt.Errorf("failed to trim history: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first. limit <= 0 returns all.
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	query := `SELECT ` + selectColumns + ` FROM generation_history ORDER BY created_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	out := []Record{}
	for rows.Next() {
		var rec Record
		if err := scanRecord(rows, &rec); err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Record, error) {
	var rec Record
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM generation_history WHERE id = $1`, id)
	err := scanRecord(row, &rec)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get history record: %w", err)
	}
	return &rec, nil
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM generation_history`); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner, rec *Record) error {
	return row.Scan(
		&rec.ID, &rec.CreatedAt, &rec.Operation, &rec.Provider, &rec.Model, &rec.Prompt, &rec.Response,
		&rec.PromptTokens, &rec.CompletionTokens, &rec.TotalTokens, &rec.DurationMS,
	)
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
