package core

import (
	"strconv"
	"strings"

	"github.com/tablekit/tablekit/internal/schema"
)

// SuggestMappings proposes a raw-header to column-id mapping for a parsed
// file by normalized name comparison against column ids and labels. Headers
// with no plausible match are left unmapped.
func SuggestMappings(fields []string, def schema.SheetDefinition) map[string]string {
	byKey := make(map[string]string, len(def.Columns)*2)
	for _, col := range def.Columns {
		byKey[normalizeHeader(col.ID)] = col.ID
		if col.Label != "" {
			byKey[normalizeHeader(col.Label)] = col.ID
		}
	}

	used := make(map[string]bool, len(def.Columns))
	mappings := make(map[string]string)
	for _, field := range fields {
		colID, ok := byKey[normalizeHeader(field)]
		if !ok || used[colID] {
			continue
		}
		mappings[field] = colID
		used[colID] = true
	}
	return mappings
}

// normalizeHeader lowercases and strips everything but letters and digits,
// so "First Name", "first_name" and "firstName" all collide.
func normalizeHeader(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MapRows converts a parsed file's raw rows into sheet rows using a
// header-to-column mapping, converting values to the column's scalar type
// and running each row through the sheet's transformer pipelines.
func MapRows(file *ParsedFile, mappings map[string]string, def schema.SheetDefinition) ([]Row, error) {
	rows := make([]Row, 0, len(file.Rows))
	for _, raw := range file.Rows {
		row := make(Row, len(mappings))
		for header, colID := range mappings {
			value, ok := raw[header]
			if !ok {
				continue
			}
			col, found := def.Column(colID)
			if !found {
				continue
			}
			row[colID] = ConvertValue(value, col.Type)
		}
		transformed, err := TransformRow(def, row)
		if err != nil {
			return nil, err
		}
		rows = append(rows, transformed)
	}
	return rows, nil
}

// ConvertValue coerces a raw string cell into the column's scalar type.
// Values that do not parse keep their raw string form so validators can
// report them instead of silently dropping data.
func ConvertValue(raw string, t schema.FieldType) any {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	switch t {
	case schema.TypeNumber:
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return f
		}
		return raw
	case schema.TypeBoolean:
		switch strings.ToLower(trimmed) {
		case "true", "t", "yes", "y", "1":
			return true
		case "false", "f", "no", "n", "0":
			return false
		}
		return raw
	default:
		return raw
	}
}
