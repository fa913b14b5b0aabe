package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tablekit/tablekit/internal/core"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// PGStore persists snapshots in a single Postgres table, one row per key.
type PGStore struct {
	db DBTX
}

// NewPGStore returns a store over an existing connection or pool.
func NewPGStore(db DBTX) *PGStore {
	return &PGStore{db: db}
}

// EnsureSchema creates the snapshot table if it does not exist.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS importer_state (
			key        TEXT PRIMARY KEY,
			state      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("create importer_state table: %w", err)
	}
	return nil
}

// Load reads the snapshot for key. Returns ErrNotFound when absent.
func (s *PGStore) Load(ctx context.Context, key string) (core.ImporterState, error) {
	var state core.ImporterState

	var data []byte
	err := s.db.QueryRow(ctx,
		`SELECT state FROM importer_state WHERE key = $1`, key,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return state, ErrNotFound
	}
	if err != nil {
		return state, fmt.Errorf("load snapshot %s: %w", key, err)
	}

	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("parse snapshot %s: %w", key, err)
	}
	return state, nil
}

// Save upserts the snapshot for key.
func (s *PGStore) Save(ctx context.Context, key string, state core.ImporterState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", key, err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO importer_state (key, state, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET state = EXCLUDED.state, updated_at = now()`,
		key, data)
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", key, err)
	}
	return nil
}
