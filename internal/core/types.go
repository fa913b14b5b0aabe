// Package core implements the import engine: the validator and transformer
// pipelines, the full/incremental validation engine, the pure state machine,
// and the orchestration that keeps a continuously-edited table consistent.
// This package has no UI dependencies and can be driven by any frontend.
package core

import (
	"github.com/tablekit/tablekit/internal/schema"
)

// Row maps column ids to scalar output values (string, float64, bool, or nil).
type Row map[string]any

// ValidationError is one validation failure for one cell. Exact identity is
// (SheetID, ColumnID, RowIndex); incremental merge replaces errors at the
// coarser (SheetID, RowIndex) granularity.
type ValidationError struct {
	SheetID  string `json:"sheetId"`
	ColumnID string `json:"columnId"`
	RowIndex int    `json:"rowIndex"`
	Message  string `json:"message"`
}

// DirtyRows tracks rows whose validation result is stale, per sheet.
// An absent sheet entry means the sheet is fully validated; a present but
// empty set means nothing is pending for that sheet.
type DirtyRows map[string]map[int]struct{}

// IsEmpty reports whether no sheet has any pending row.
func (d DirtyRows) IsEmpty() bool {
	for _, rows := range d {
		if len(rows) > 0 {
			return false
		}
	}
	return true
}

// clone returns a deep copy so reducers never mutate shared state.
func (d DirtyRows) clone() DirtyRows {
	if d == nil {
		return nil
	}
	out := make(DirtyRows, len(d))
	for sheet, rows := range d {
		set := make(map[int]struct{}, len(rows))
		for i := range rows {
			set[i] = struct{}{}
		}
		out[sheet] = set
	}
	return out
}

// Mode is the importer's position in its lifecycle.
type Mode string

const (
	ModeUpload    Mode = "upload"
	ModeMapping   Mode = "mapping"
	ModePreview   Mode = "preview"
	ModeSubmit    Mode = "submit"
	ModeCompleted Mode = "completed"
	ModeFailed    Mode = "failed"
)

// ParsedFile is the output of the parsing collaborator: ordered headers plus
// one header-keyed value map per data row.
type ParsedFile struct {
	Name   string              `json:"name"`
	Fields []string            `json:"fields"`
	Rows   []map[string]string `json:"rows"`
}

// SubmitStats summarizes a completed submission.
type SubmitStats struct {
	Submitted int `json:"submitted"`
	Failed    int `json:"failed"`
}

// ImporterState is the complete state of one import. It is treated as an
// immutable value: every transition produces a new instance.
type ImporterState struct {
	// Definitions are reattached after a persistence restore; they carry
	// function values and are never serialized.
	Definitions []schema.SheetDefinition `json:"-"`

	Mode           Mode              `json:"mode"`
	CurrentSheetID string            `json:"currentSheetId"`
	SheetData      map[string][]Row  `json:"sheetData"`
	ColumnMappings map[string]string `json:"columnMappings"`
	ParsedFile     *ParsedFile       `json:"parsedFile,omitempty"`

	ValidationErrors     []ValidationError `json:"validationErrors"`
	ValidationInProgress bool              `json:"validationInProgress"`
	ValidationRunID      int64             `json:"validationRunId"`
	DirtyRows            DirtyRows         `json:"dirtyRows,omitempty"`

	Progress      int          `json:"progress"`
	Stats         *SubmitStats `json:"stats,omitempty"`
	FailureReason string       `json:"failureReason,omitempty"`
}

// NewState builds the initial importer state for a set of sheet definitions.
func NewState(defs []schema.SheetDefinition) ImporterState {
	s := ImporterState{
		Definitions: defs,
		Mode:        ModeUpload,
		SheetData:   make(map[string][]Row, len(defs)),
	}
	if len(defs) > 0 {
		s.CurrentSheetID = defs[0].ID
	}
	return s
}

// Definition returns the sheet definition with the given id, or false.
func (s ImporterState) Definition(sheetID string) (schema.SheetDefinition, bool) {
	for _, def := range s.Definitions {
		if def.ID == sheetID {
			return def, true
		}
	}
	return schema.SheetDefinition{}, false
}

// Restore reattaches non-serializable definitions to a state loaded from a
// snapshot store.
func Restore(s ImporterState, defs []schema.SheetDefinition) ImporterState {
	s.Definitions = defs
	// A snapshot can be taken mid-debounce, before its validation run has
	// committed. The run does not survive the process, so the flag must not
	// either. Pending dirty rows stay and fold into the next scheduled run.
	s.ValidationInProgress = false
	if s.SheetData == nil {
		s.SheetData = make(map[string][]Row, len(defs))
	}
	if s.CurrentSheetID == "" && len(defs) > 0 {
		s.CurrentSheetID = defs[0].ID
	}
	if s.Mode == "" {
		s.Mode = ModeUpload
	}
	return s
}
