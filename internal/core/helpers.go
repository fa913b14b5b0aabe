package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tablekit/tablekit/internal/schema"
)

// IsEmptyCell reports whether a cell value counts as absent for validation
// and transformation purposes: nil, or a string that is empty after trimming.
func IsEmptyCell(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	default:
		return false
	}
}

// HasData reports whether a row has at least one non-empty cell. Fully empty
// rows are skipped by validation.
func HasData(row Row) bool {
	for _, v := range row {
		if !IsEmptyCell(v) {
			return true
		}
	}
	return false
}

// EmptyRow builds a row with every declared column present but nil.
func EmptyRow(def schema.SheetDefinition) Row {
	row := make(Row, len(def.Columns))
	for _, col := range def.Columns {
		row[col.ID] = nil
	}
	return row
}

// CellString renders a cell value for comparison against declared value sets.
// Numbers use the shortest representation so 2.0 and "2" compare equal.
func CellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// cloneRow copies a single row.
func cloneRow(row Row) Row {
	out := make(Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

// cloneRows copies a row slice without copying the rows themselves.
// Callers that modify a row must clone it first.
func cloneRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	copy(out, rows)
	return out
}

// cloneSheetData copies the sheet map without copying row slices.
func cloneSheetData(data map[string][]Row) map[string][]Row {
	out := make(map[string][]Row, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
