package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tablekit/tablekit/internal/schema"
)

// errorSet keys validation errors by their exact identity so tests never
// depend on evaluation order.
func errorSet(errs []ValidationError) map[string]struct{} {
	set := make(map[string]struct{}, len(errs))
	for _, e := range errs {
		set[fmt.Sprintf("%s|%s|%d|%s", e.SheetID, e.ColumnID, e.RowIndex, e.Message)] = struct{}{}
	}
	return set
}

func engineDefs() []schema.SheetDefinition {
	return []schema.SheetDefinition{
		{
			ID: "people",
			Columns: []schema.ColumnDefinition{
				{ID: "name", Type: schema.TypeText, Validators: []schema.ValidatorDefinition{{Kind: schema.ValidatorRequired}}},
				{ID: "age", Type: schema.TypeNumber, Validators: []schema.ValidatorDefinition{{Kind: schema.ValidatorRequired}}},
				{ID: "status", Type: schema.TypeEnum, EnumValues: []string{"active", "inactive"}},
			},
		},
	}
}

func TestValidateRequiredOnAbsentCell(t *testing.T) {
	// Scenario: row has data but no age key at all; the required column
	// must still be checked.
	defs := engineDefs()
	data := map[string][]Row{
		"people": {
			{"name": "Ada"},
		},
	}

	errs, err := NewEngine(nil).Validate(context.Background(), defs, data)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(errs) != 1 {
		t.Fatalf("errors = %v, want exactly one", errs)
	}
	e := errs[0]
	if e.SheetID != "people" || e.ColumnID != "age" || e.RowIndex != 0 {
		t.Errorf("error identity = (%s,%s,%d)", e.SheetID, e.ColumnID, e.RowIndex)
	}
	if e.Message != "field is required" {
		t.Errorf("message = %q", e.Message)
	}
}

func TestValidateSkipsEmptyRowsAndOptionalAbsentCells(t *testing.T) {
	defs := engineDefs()
	data := map[string][]Row{
		"people": {
			{"name": nil, "age": nil, "status": nil}, // no data at all
			{"name": "Bo", "age": float64(4)},        // status absent, optional
		},
	}

	errs, err := NewEngine(nil).Validate(context.Background(), defs, data)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(errs) != 0 {
		t.Errorf("errors = %v, want none", errs)
	}
}

func TestValidateEnumCell(t *testing.T) {
	defs := engineDefs()
	data := map[string][]Row{
		"people": {
			{"name": "Ada", "age": float64(36), "status": "pending"},
			{"name": "Bo", "age": float64(4), "status": "active"},
		},
	}

	errs, err := NewEngine(nil).Validate(context.Background(), defs, data)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(errs) != 1 {
		t.Fatalf("errors = %v, want one includes failure", errs)
	}
	if errs[0].ColumnID != "status" || errs[0].RowIndex != 0 {
		t.Errorf("error = %+v, want (status,0)", errs[0])
	}
}

func TestValidateAccumulatesMultipleErrorsPerCell(t *testing.T) {
	defs := []schema.SheetDefinition{{
		ID: "s",
		Columns: []schema.ColumnDefinition{{
			ID: "code",
			Validators: []schema.ValidatorDefinition{
				{Kind: schema.ValidatorRegex, Pattern: `^\d+$`, Message: "digits only"},
				{Kind: schema.ValidatorIncludes, Values: []string{"1", "2"}, Message: "unknown code"},
			},
		}},
	}}
	data := map[string][]Row{"s": {{"code": "xyz"}}}

	errs, err := NewEngine(nil).Validate(context.Background(), defs, data)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	want := errorSet([]ValidationError{
		{SheetID: "s", ColumnID: "code", RowIndex: 0, Message: "digits only"},
		{SheetID: "s", ColumnID: "code", RowIndex: 0, Message: "unknown code"},
	})
	if diff := cmp.Diff(want, errorSet(errs)); diff != "" {
		t.Errorf("error set mismatch (-want +got):\n%s", diff)
	}
}

func TestFullAndAllDirtyIncrementalAgree(t *testing.T) {
	defs := engineDefs()
	data := map[string][]Row{
		"people": {
			{"name": "Ada", "age": float64(36), "status": "pending"},
			{"name": "", "age": nil},
			{"name": "Cy", "age": float64(9), "status": "inactive"},
		},
	}

	engine := NewEngine(nil)
	full, err := engine.Validate(context.Background(), defs, data)
	if err != nil {
		t.Fatalf("full: %v", err)
	}

	allDirty := DirtyRows{"people": {0: {}, 1: {}, 2: {}}}
	incr, err := engine.ValidateRows(context.Background(), defs, data, allDirty)
	if err != nil {
		t.Fatalf("incremental: %v", err)
	}

	if diff := cmp.Diff(errorSet(full), errorSet(incr)); diff != "" {
		t.Errorf("full vs all-dirty incremental (-full +incr):\n%s", diff)
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	defs := engineDefs()
	data := map[string][]Row{
		"people": {
			{"name": "", "age": float64(1), "status": "bogus"},
		},
	}

	engine := NewEngine(nil)
	first, err := engine.Validate(context.Background(), defs, data)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := engine.Validate(context.Background(), defs, data)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if diff := cmp.Diff(errorSet(first), errorSet(second)); diff != "" {
		t.Errorf("repeated validation differs (-first +second):\n%s", diff)
	}
}

func TestIncrementalValidatesOnlyDirtyRows(t *testing.T) {
	defs := engineDefs()
	data := map[string][]Row{
		"people": {
			{"name": "", "age": nil},                 // row 0: two errors, not dirty
			{"name": "", "age": float64(2)},          // row 1: dirty
			{"name": "Cy", "age": nil, "status": ""}, // row 2: not dirty
		},
	}

	errs, err := NewEngine(nil).ValidateRows(context.Background(), defs, data, DirtyRows{"people": {1: {}}})
	if err != nil {
		t.Fatalf("ValidateRows: %v", err)
	}
	for _, e := range errs {
		if e.RowIndex != 1 {
			t.Errorf("error for non-dirty row: %+v", e)
		}
	}
	if len(errs) != 1 {
		t.Errorf("errors = %v, want only row 1's missing name", errs)
	}
}

func TestBrokenValidatorFailsWholeRun(t *testing.T) {
	fault := errors.New("lookup service down")
	defs := []schema.SheetDefinition{{
		ID: "s",
		Columns: []schema.ColumnDefinition{
			{ID: "ok", Validators: []schema.ValidatorDefinition{{Kind: schema.ValidatorRequired}}},
			{ID: "broken", Validators: []schema.ValidatorDefinition{{
				Kind: schema.ValidatorCustom,
				Validate: func(context.Context, any, map[string]any) (string, error) {
					return "", fault
				},
			}}},
		},
	}}
	data := map[string][]Row{"s": {{"ok": "x", "broken": "y"}}}

	_, err := NewEngine(nil).Validate(context.Background(), defs, data)
	if !errors.Is(err, fault) {
		t.Errorf("err = %v, want the validator fault", err)
	}
}

func TestEngineEmitsHookEvents(t *testing.T) {
	var events []Event
	engine := NewEngine(func(e Event) { events = append(events, e) })

	defs := engineDefs()
	data := map[string][]Row{"people": {{"name": "Ada", "age": float64(1)}}}

	if _, err := engine.Validate(context.Background(), defs, data); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(events) != 1 || events[0].Kind != EventFullValidation {
		t.Fatalf("events = %+v, want one full-validation event", events)
	}
	if events[0].Rows != 1 {
		t.Errorf("rows = %d, want 1", events[0].Rows)
	}
}
