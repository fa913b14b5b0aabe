package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tablekit/tablekit/internal/schema"
)

func contactDefs() []schema.SheetDefinition {
	return []schema.SheetDefinition{
		{
			ID: "contacts",
			Columns: []schema.ColumnDefinition{
				{ID: "name", Type: schema.TypeText, Validators: []schema.ValidatorDefinition{{Kind: schema.ValidatorRequired}}},
				{ID: "age", Type: schema.TypeNumber},
				{ID: "status", Type: schema.TypeEnum, EnumValues: []string{"active", "inactive"}},
			},
		},
		{
			ID: "teams",
			Columns: []schema.ColumnDefinition{
				{ID: "team", Type: schema.TypeText},
			},
		},
	}
}

func TestReduceEnterDataManually(t *testing.T) {
	s := NewState(contactDefs())
	next := Reduce(s, EnterDataManually{RowCount: 3})

	if next.Mode != ModePreview {
		t.Errorf("mode = %s, want %s", next.Mode, ModePreview)
	}
	for _, sheet := range []string{"contacts", "teams"} {
		if got := len(next.SheetData[sheet]); got != 3 {
			t.Errorf("sheet %s rows = %d, want 3", sheet, got)
		}
	}
	for _, row := range next.SheetData["contacts"] {
		if len(row) != 3 {
			t.Errorf("empty row has %d keys, want one per column", len(row))
		}
		if HasData(row) {
			t.Error("empty row reports HasData")
		}
	}
	if len(s.SheetData) != 0 {
		t.Error("original state was mutated")
	}
}

func TestReduceFileParsed(t *testing.T) {
	s := NewState(contactDefs())
	file := &ParsedFile{Name: "in.csv", Fields: []string{"Name"}}
	next := Reduce(s, FileParsed{File: file})

	if next.Mode != ModeMapping {
		t.Errorf("mode = %s, want %s", next.Mode, ModeMapping)
	}
	if next.ParsedFile != file {
		t.Error("parsed file not stored")
	}
}

func TestReduceCellChanged(t *testing.T) {
	s := Reduce(NewState(contactDefs()), EnterDataManually{RowCount: 2})

	next := Reduce(s, CellChanged{SheetID: "contacts", RowIndex: 1, ColumnID: "name", Value: "Ada"})

	if got := next.SheetData["contacts"][1]["name"]; got != "Ada" {
		t.Errorf("cell = %v, want Ada", got)
	}
	if _, dirty := next.DirtyRows["contacts"][1]; !dirty {
		t.Error("edited row not marked dirty")
	}

	// The prior state must be untouched.
	if got := s.SheetData["contacts"][1]["name"]; got != nil {
		t.Errorf("original cell mutated to %v", got)
	}
	if len(s.DirtyRows) != 0 {
		t.Error("original dirty map mutated")
	}
}

func TestReduceCellChangedOutOfRange(t *testing.T) {
	s := Reduce(NewState(contactDefs()), EnterDataManually{RowCount: 1})

	for _, act := range []CellChanged{
		{SheetID: "contacts", RowIndex: 5, ColumnID: "name", Value: "x"},
		{SheetID: "nope", RowIndex: 0, ColumnID: "name", Value: "x"},
		{SheetID: "contacts", RowIndex: -1, ColumnID: "name", Value: "x"},
	} {
		next := Reduce(s, act)
		if diff := cmp.Diff(s.SheetData, next.SheetData); diff != "" {
			t.Errorf("out-of-range edit changed data (-want +got):\n%s", diff)
		}
	}
}

func TestReduceRemoveRows(t *testing.T) {
	s := Reduce(NewState(contactDefs()), EnterDataManually{RowCount: 4})
	s = Reduce(s, CellChanged{SheetID: "contacts", RowIndex: 0, ColumnID: "name", Value: "a"})
	s = Reduce(s, CellChanged{SheetID: "contacts", RowIndex: 3, ColumnID: "name", Value: "d"})

	next := Reduce(s, RemoveRows{SheetID: "contacts", RowIndices: []int{1, 2}})

	rows := next.SheetData["contacts"]
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0]["name"] != "a" || rows[1]["name"] != "d" {
		t.Errorf("wrong rows survived: %v", rows)
	}
	if next.DirtyRows != nil {
		t.Error("dirty map should be dropped after row removal")
	}
}

func TestReduceAddEmptyRow(t *testing.T) {
	s := Reduce(NewState(contactDefs()), EnterDataManually{RowCount: 1})
	next := Reduce(s, AddEmptyRow{SheetID: "contacts"})

	if got := len(next.SheetData["contacts"]); got != 2 {
		t.Errorf("rows = %d, want 2", got)
	}
	if got := len(s.SheetData["contacts"]); got != 1 {
		t.Errorf("original rows = %d, want 1", got)
	}
}

func TestReduceValidationRunGuard(t *testing.T) {
	s := NewState(contactDefs())
	s = Reduce(s, ValidationStarted{RunID: 7})

	if !s.ValidationInProgress || s.ValidationRunID != 7 {
		t.Fatalf("started: inProgress=%v runID=%d", s.ValidationInProgress, s.ValidationRunID)
	}

	stale := Reduce(s, ValidationCompleted{RunID: 3, Errors: []ValidationError{{SheetID: "contacts"}}})
	if len(stale.ValidationErrors) != 0 {
		t.Error("stale run's errors were applied")
	}
	if !stale.ValidationInProgress {
		t.Error("stale run cleared the in-progress flag")
	}

	fresh := Reduce(s, ValidationCompleted{RunID: 7, Errors: []ValidationError{{SheetID: "contacts", ColumnID: "name"}}})
	if len(fresh.ValidationErrors) != 1 {
		t.Error("matching run's errors were not applied")
	}
	if fresh.ValidationInProgress {
		t.Error("matching run did not clear the in-progress flag")
	}
	if fresh.DirtyRows != nil {
		t.Error("matching run did not clear dirty rows")
	}
}

func TestReduceModeTransitions(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		want   Mode
	}{
		{"upload", Upload{}, ModeUpload},
		{"mapping", Mapping{}, ModeMapping},
		{"preview", Preview{}, ModePreview},
		{"submit", Submit{}, ModeSubmit},
		{"completed", Completed{Stats: SubmitStats{Submitted: 5}}, ModeCompleted},
		{"failed", Failed{Reason: "boom"}, ModeFailed},
	}

	s := NewState(contactDefs())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := Reduce(s, tt.action)
			if next.Mode != tt.want {
				t.Errorf("mode = %s, want %s", next.Mode, tt.want)
			}
		})
	}
}

func TestReduceSubmitLifecycle(t *testing.T) {
	s := NewState(contactDefs())
	s = Reduce(s, Submit{})
	s = Reduce(s, SubmitProgress{Progress: 40})
	if s.Progress != 40 {
		t.Errorf("progress = %d, want 40", s.Progress)
	}

	done := Reduce(s, Completed{Stats: SubmitStats{Submitted: 12, Failed: 1}})
	if done.Progress != 100 || done.Stats == nil || done.Stats.Submitted != 12 {
		t.Errorf("completed state: progress=%d stats=%+v", done.Progress, done.Stats)
	}

	failed := Reduce(s, Failed{Reason: "backend down"})
	if failed.Mode != ModeFailed || failed.FailureReason != "backend down" {
		t.Errorf("failed state: mode=%s reason=%q", failed.Mode, failed.FailureReason)
	}

	// failed -> preview is the retry path
	retry := Reduce(failed, Preview{})
	if retry.Mode != ModePreview {
		t.Errorf("retry mode = %s, want %s", retry.Mode, ModePreview)
	}
}

func TestReduceReset(t *testing.T) {
	s := Reduce(NewState(contactDefs()), EnterDataManually{RowCount: 2})
	s = Reduce(s, CellChanged{SheetID: "contacts", RowIndex: 0, ColumnID: "name", Value: "x"})

	reset := Reduce(s, Reset{})
	if reset.Mode != ModeUpload {
		t.Errorf("mode = %s, want %s", reset.Mode, ModeUpload)
	}
	if len(reset.SheetData) != 0 || reset.DirtyRows != nil {
		t.Error("reset did not clear data")
	}
	if len(reset.Definitions) != 2 {
		t.Error("reset dropped the definitions")
	}
}

func TestReduceSetState(t *testing.T) {
	s := NewState(contactDefs())
	replacement := ImporterState{Mode: ModePreview, CurrentSheetID: "teams"}
	next := Reduce(s, SetState{State: replacement})
	if next.Mode != ModePreview || next.CurrentSheetID != "teams" {
		t.Errorf("state not replaced: %+v", next)
	}
}
