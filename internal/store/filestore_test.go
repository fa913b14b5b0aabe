package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tablekit/tablekit/internal/core"
	"github.com/tablekit/tablekit/internal/schema"
)

func testDefs() []schema.SheetDefinition {
	return []schema.SheetDefinition{{
		ID:      "contacts",
		Columns: []schema.ColumnDefinition{{ID: "name", Type: schema.TypeText}},
	}}
}

func TestFileStoreRoundtrip(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	state := core.NewState(testDefs())
	state = core.Reduce(state, core.EnterDataManually{RowCount: 1})
	state = core.Reduce(state, core.CellChanged{SheetID: "contacts", RowIndex: 0, ColumnID: "name", Value: "Ada"})

	if err := fs.Save(ctx, "session-1", state); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := fs.Load(ctx, "session-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if loaded.Mode != state.Mode {
		t.Errorf("mode = %s, want %s", loaded.Mode, state.Mode)
	}
	if diff := cmp.Diff(state.SheetData, loaded.SheetData); diff != "" {
		t.Errorf("sheet data (-saved +loaded):\n%s", diff)
	}
	// Definitions carry function values and are never serialized.
	if loaded.Definitions != nil {
		t.Error("definitions leaked into the snapshot")
	}
}

func TestFileStoreLoadMissingKey(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	if _, err := fs.Load(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFileStoreSanitizesKeys(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	state := core.NewState(testDefs())
	if err := fs.Save(ctx, "../escape/attempt", state); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	found := false
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".json" {
			found = true
		}
	}
	if !found {
		t.Error("snapshot did not land inside the store directory")
	}

	if _, err := fs.Load(ctx, "../escape/attempt"); err != nil {
		t.Errorf("Load with the same key: %v", err)
	}
}

func TestFileStoreCorruptSnapshot(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := fs.Load(context.Background(), "bad"); err == nil {
		t.Error("corrupt snapshot loaded without error")
	}
}

func TestLoadOrNew(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()
	defs := testDefs()

	fresh := core.NewState(defs)

	// Absent key falls back to the fresh state.
	got := LoadOrNew(ctx, fs, "missing", fresh)
	if got.Mode != core.ModeUpload {
		t.Errorf("fallback mode = %s", got.Mode)
	}

	// A saved snapshot comes back with definitions reattached.
	saved := core.Reduce(fresh, core.Preview{})
	if err := fs.Save(ctx, "here", saved); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got = LoadOrNew(ctx, fs, "here", fresh)
	if got.Mode != core.ModePreview {
		t.Errorf("loaded mode = %s, want %s", got.Mode, core.ModePreview)
	}
	if len(got.Definitions) != 1 {
		t.Error("definitions not reattached after load")
	}

	// Nil store and empty key short-circuit to the fresh state.
	if got := LoadOrNew(ctx, nil, "here", fresh); got.Mode != core.ModeUpload {
		t.Errorf("nil store mode = %s", got.Mode)
	}
	if got := LoadOrNew(ctx, fs, "", saved); got.Mode != core.ModePreview {
		t.Errorf("empty key mode = %s", got.Mode)
	}
}
