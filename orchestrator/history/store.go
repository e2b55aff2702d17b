// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

// Package history records completed generations so the dashboard and the
// /history endpoint can show recent activity and aggregates.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("history record not found")

	// ErrInvalidInput is returned for records missing required fields.
	ErrInvalidInput = errors.New("invalid history record")
)

// Operation names.
const (
	OpGenerate = "generate"
	OpChat     = "chat"
	OpBatch    = "batch"
)

// Record is one completed generation.
type Record struct {
	ID               string    `json:"id"`
	CreatedAt        time.Time `json:"created_at"`
	Operation        string    `json:"operation"`
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	Prompt           string    `json:"prompt"`
	Response         string    `json:"response"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	DurationMS       int64     `json:"duration_ms"`
}

// Store persists records. Implementations are safe for concurrent use and
// keep at most HISTORY_LIMIT records. Recent with limit <= 0 returns every
// stored record.
type Store interface {
	Add(ctx context.Context, rec *Record) error
	Recent(ctx context.Context, limit int) ([]Record, error)
	Get(ctx context.Context, id string) (*Record, error)
	Clear(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// prepare validates rec and fills ID and CreatedAt when empty.
func prepare(rec *Record) error {
	if rec == nil || rec.Provider == "" || rec.Operation == "" {
		return ErrInvalidInput
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return nil
}

// NopStore discards everything. Used when HISTORY_BACKEND=none.
type NopStore struct{}

var _ Store = NopStore{}

func (NopStore) Add(context.Context, *Record) error { return nil }

func (NopStore) Recent(context.Context, int) ([]Record, error) { return []Record{}, nil }

func (NopStore) Get(context.Context, string) (*Record, error) { return nil, ErrNotFound }

func (NopStore) Clear(context.Context) error { return nil }

func (NopStore) Ping(context.Context) error { return nil }

func (NopStore) Close() error { return nil }
