package core

// Reduce is the pure state machine: (state, action) -> new state. The input
// state is never mutated; every branch copies what it changes.
//
// Mode transitions: upload -> mapping -> preview -> submit -> {completed,
// failed}; preview <-> mapping for back-navigation; failed -> preview for
// retry.
func Reduce(s ImporterState, a Action) ImporterState {
	switch act := a.(type) {
	case EnterDataManually:
		s.SheetData = cloneSheetData(s.SheetData)
		for _, def := range s.Definitions {
			rows := make([]Row, act.RowCount)
			for i := range rows {
				rows[i] = EmptyRow(def)
			}
			s.SheetData[def.ID] = rows
		}
		s.Mode = ModePreview
		return s

	case FileParsed:
		s.ParsedFile = act.File
		s.Mode = ModeMapping
		return s

	case Upload:
		s.Mode = ModeUpload
		return s

	case ColumnMappingChanged:
		s.ColumnMappings = act.Mappings
		return s

	case DataMapped:
		s.SheetData = cloneSheetData(s.SheetData)
		s.SheetData[act.SheetID] = act.Rows
		// Mapped rows invalidate any pending per-row tracking; the next
		// validation pass must be a full one.
		s.DirtyRows = nil
		s.Mode = ModePreview
		return s

	case CellChanged:
		rows, ok := s.SheetData[act.SheetID]
		if !ok || act.RowIndex < 0 || act.RowIndex >= len(rows) {
			return s
		}
		rows = cloneRows(rows)
		row := cloneRow(rows[act.RowIndex])
		row[act.ColumnID] = act.Value
		rows[act.RowIndex] = row

		s.SheetData = cloneSheetData(s.SheetData)
		s.SheetData[act.SheetID] = rows

		dirty := s.DirtyRows.clone()
		if dirty == nil {
			dirty = make(DirtyRows, 1)
		}
		if dirty[act.SheetID] == nil {
			dirty[act.SheetID] = make(map[int]struct{}, 1)
		}
		dirty[act.SheetID][act.RowIndex] = struct{}{}
		s.DirtyRows = dirty
		return s

	case RemoveRows:
		rows, ok := s.SheetData[act.SheetID]
		if !ok {
			return s
		}
		drop := make(map[int]struct{}, len(act.RowIndices))
		for _, i := range act.RowIndices {
			drop[i] = struct{}{}
		}
		kept := make([]Row, 0, len(rows))
		for i, row := range rows {
			if _, gone := drop[i]; !gone {
				kept = append(kept, row)
			}
		}
		s.SheetData = cloneSheetData(s.SheetData)
		s.SheetData[act.SheetID] = kept
		// Row indices shifted; pending dirty indices would point at the
		// wrong rows, so drop them and force a full pass.
		s.DirtyRows = nil
		return s

	case AddEmptyRow:
		def, ok := s.Definition(act.SheetID)
		if !ok {
			return s
		}
		rows := cloneRows(s.SheetData[act.SheetID])
		rows = append(rows, EmptyRow(def))
		s.SheetData = cloneSheetData(s.SheetData)
		s.SheetData[act.SheetID] = rows
		return s

	case SheetChanged:
		s.CurrentSheetID = act.SheetID
		return s

	case Submit:
		s.Mode = ModeSubmit
		s.Progress = 0
		s.Stats = nil
		s.FailureReason = ""
		return s

	case SubmitProgress:
		s.Progress = act.Progress
		return s

	case Completed:
		s.Mode = ModeCompleted
		s.Progress = 100
		stats := act.Stats
		s.Stats = &stats
		return s

	case Failed:
		s.Mode = ModeFailed
		s.FailureReason = act.Reason
		return s

	case Preview:
		s.Mode = ModePreview
		return s

	case Mapping:
		s.Mode = ModeMapping
		return s

	case Reset:
		return NewState(s.Definitions)

	case SetState:
		return act.State

	case ValidationStarted:
		s.ValidationInProgress = true
		s.ValidationRunID = act.RunID
		return s

	case ValidationCompleted:
		if act.RunID != s.ValidationRunID {
			// Stale result from a superseded run; expected under rapid
			// edits, silently discarded.
			return s
		}
		s.ValidationErrors = act.Errors
		s.ValidationInProgress = false
		s.DirtyRows = nil
		return s

	default:
		return s
	}
}
