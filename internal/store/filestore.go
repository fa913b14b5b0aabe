package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/tablekit/tablekit/internal/core"
)

// lockRetryDelay is how often lock acquisition is retried while the
// context is alive.
const lockRetryDelay = 25 * time.Millisecond

// FileStore keeps one JSON file per key under a directory, guarded by a
// file lock so concurrent processes don't interleave writes. Writes are
// atomic: temp file then rename.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed and returns a store over it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Load reads the snapshot for key. Returns ErrNotFound when absent.
func (s *FileStore) Load(ctx context.Context, key string) (core.ImporterState, error) {
	var state core.ImporterState

	path := s.path(key)
	lock := flock.New(path + ".lock")
	locked, err := lock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		return state, fmt.Errorf("lock snapshot %s: %w", key, err)
	}
	defer lock.Unlock()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return state, ErrNotFound
	}
	if err != nil {
		return state, fmt.Errorf("read snapshot %s: %w", key, err)
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("parse snapshot %s: %w", key, err)
	}
	return state, nil
}

// Save writes the snapshot for key atomically.
func (s *FileStore) Save(ctx context.Context, key string, state core.ImporterState) error {
	path := s.path(key)
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		return fmt.Errorf("lock snapshot %s: %w", key, err)
	}
	defer lock.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", key, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit snapshot %s: %w", key, err)
	}
	return nil
}

// path maps a caller-supplied key to a safe filename.
func (s *FileStore) path(key string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, key)
	return filepath.Join(s.dir, safe+".json")
}
