// Package store persists importer state snapshots as keyed blobs. Load
// failures and absent keys are never fatal to the engine: callers fall
// back to a freshly built initial state.
package store

import (
	"context"
	"errors"

	"github.com/tablekit/tablekit/internal/core"
)

// ErrNotFound is returned by Load when no snapshot exists for the key.
var ErrNotFound = errors.New("state snapshot not found")

// Store is the persistence collaborator. Snapshots exclude sheet
// definitions (they carry function values); callers reattach them with
// core.Restore after a Load.
type Store interface {
	Load(ctx context.Context, key string) (core.ImporterState, error)
	Save(ctx context.Context, key string, state core.ImporterState) error
}

// LoadOrNew loads the snapshot for key, falling back to a fresh initial
// state on absence or any load failure. The returned state always has its
// definitions attached.
func LoadOrNew(ctx context.Context, s Store, key string, state core.ImporterState) core.ImporterState {
	if s == nil || key == "" {
		return state
	}
	loaded, err := s.Load(ctx, key)
	if err != nil {
		return state
	}
	return core.Restore(loaded, state.Definitions)
}
