package core

// Action is the closed mutation vocabulary consumed by Reduce. External
// drivers (HTTP, CLI, tests) interact with the engine solely by submitting
// batches of these actions and reading back ImporterState.
type Action interface {
	// Name returns the wire/log identifier of the action.
	Name() string
}

// EnterDataManually populates every sheet with RowCount empty rows and moves
// to preview, bypassing file upload.
type EnterDataManually struct {
	RowCount int `json:"rowCount"`
}

// FileParsed stores the parsing collaborator's output and moves to mapping.
type FileParsed struct {
	File *ParsedFile `json:"file"`
}

// Upload navigates back to the upload step.
type Upload struct{}

// ColumnMappingChanged replaces the raw-header to column-id mappings.
type ColumnMappingChanged struct {
	Mappings map[string]string `json:"mappings"`
}

// DataMapped installs mapped rows for a sheet and moves to preview.
type DataMapped struct {
	SheetID string `json:"sheetId"`
	Rows    []Row  `json:"rows"`
}

// CellChanged sets one cell value and marks its row dirty.
type CellChanged struct {
	SheetID  string `json:"sheetId"`
	RowIndex int    `json:"rowIndex"`
	ColumnID string `json:"columnId"`
	Value    any    `json:"value"`
}

// RemoveRows deletes the given rows from a sheet.
type RemoveRows struct {
	SheetID    string `json:"sheetId"`
	RowIndices []int  `json:"rowIndices"`
}

// AddEmptyRow appends one empty row to a sheet.
type AddEmptyRow struct {
	SheetID string `json:"sheetId"`
}

// SheetChanged switches the current sheet.
type SheetChanged struct {
	SheetID string `json:"sheetId"`
}

// Submit begins the submission lifecycle.
type Submit struct{}

// SubmitProgress updates the submission progress counter.
type SubmitProgress struct {
	Progress int `json:"progress"`
}

// Completed ends the submission lifecycle successfully.
type Completed struct {
	Stats SubmitStats `json:"stats"`
}

// Failed ends the submission lifecycle unsuccessfully.
type Failed struct {
	Reason string `json:"reason"`
}

// Preview navigates to the preview step.
type Preview struct{}

// Mapping navigates back to the mapping step.
type Mapping struct{}

// Reset returns to the initial state, keeping the sheet definitions.
type Reset struct{}

// SetState replaces the whole state. Used by persistence restore.
type SetState struct {
	State ImporterState `json:"state"`
}

// ValidationStarted records that a validation batch with the given run id
// has been scheduled.
type ValidationStarted struct {
	RunID int64 `json:"runId"`
}

// ValidationCompleted delivers a validation batch's result. The reducer
// applies it only when RunID matches the currently stored run id, which is
// how superseded runs are discarded.
type ValidationCompleted struct {
	RunID  int64             `json:"runId"`
	Errors []ValidationError `json:"errors"`
}

func (EnterDataManually) Name() string    { return "ENTER_DATA_MANUALLY" }
func (FileParsed) Name() string           { return "FILE_PARSED" }
func (Upload) Name() string               { return "UPLOAD" }
func (ColumnMappingChanged) Name() string { return "COLUMN_MAPPING_CHANGED" }
func (DataMapped) Name() string           { return "DATA_MAPPED" }
func (CellChanged) Name() string          { return "CELL_CHANGED" }
func (RemoveRows) Name() string           { return "REMOVE_ROWS" }
func (AddEmptyRow) Name() string          { return "ADD_EMPTY_ROW" }
func (SheetChanged) Name() string         { return "SHEET_CHANGED" }
func (Submit) Name() string               { return "SUBMIT" }
func (SubmitProgress) Name() string       { return "PROGRESS" }
func (Completed) Name() string            { return "COMPLETED" }
func (Failed) Name() string               { return "FAILED" }
func (Preview) Name() string              { return "PREVIEW" }
func (Mapping) Name() string              { return "MAPPING" }
func (Reset) Name() string                { return "RESET" }
func (SetState) Name() string             { return "SET_STATE" }
func (ValidationStarted) Name() string    { return "VALIDATION_STARTED" }
func (ValidationCompleted) Name() string  { return "VALIDATION_COMPLETED" }

// RequiresValidation reports whether an action belongs to the fixed subset
// that mandates revalidation after dispatch.
func RequiresValidation(a Action) bool {
	switch a.(type) {
	case DataMapped, CellChanged, RemoveRows:
		return true
	default:
		return false
	}
}
