// Package schema defines the declarative shape of an import: sheets, columns,
// and the validator/transformer definitions attached to them. Definitions are
// data; the executable forms are built by internal/core.
package schema

import (
	"context"
	"fmt"
	"strings"
)

// FieldType is the declared type of a column. The set is closed; unknown
// types are rejected when a definition is validated.
type FieldType string

const (
	TypeText      FieldType = "text"
	TypeNumber    FieldType = "number"
	TypeBoolean   FieldType = "boolean"
	TypeEnum      FieldType = "enum"
	TypeReference FieldType = "reference"
)

// ValidatorKind discriminates validator definitions. The built-in set is
// closed; ValidatorCustom is the escape hatch for caller-supplied predicates.
type ValidatorKind string

const (
	ValidatorRequired ValidatorKind = "required"
	ValidatorIncludes ValidatorKind = "includes"
	ValidatorRegex    ValidatorKind = "regex"
	ValidatorUnique   ValidatorKind = "unique"
	ValidatorCustom   ValidatorKind = "custom"
)

// TransformerKind discriminates transformer definitions.
type TransformerKind string

const (
	TransformTrim      TransformerKind = "trim"
	TransformLowercase TransformerKind = "lowercase"
	TransformUppercase TransformerKind = "uppercase"
	TransformNumber    TransformerKind = "number"
	TransformDate      TransformerKind = "date"
	TransformCustom    TransformerKind = "custom"
)

// ConditionFunc decides whether a validator applies to a given row.
// A nil ConditionFunc means the validator always applies.
type ConditionFunc func(row map[string]any) bool

// ValidateFunc is a caller-supplied validator for ValidatorCustom definitions.
// It returns a non-empty message when the value is invalid. A returned error
// marks the whole validation run as broken, not the cell.
type ValidateFunc func(ctx context.Context, value any, row map[string]any) (string, error)

// TransformFunc maps one cell value to another. Implementations must be
// total, synchronous, and free of side effects.
type TransformFunc func(value any) any

// ValidatorDefinition is one declarative validation rule on a column.
type ValidatorDefinition struct {
	Kind    ValidatorKind `yaml:"kind"`
	Values  []string      `yaml:"values,omitempty"`  // includes
	Pattern string        `yaml:"pattern,omitempty"` // regex
	Message string        `yaml:"message,omitempty"` // optional override

	// When restricts the validator to rows matching the predicate.
	// Only settable programmatically, never from YAML.
	When ConditionFunc `yaml:"-" json:"-"`

	// Validate backs ValidatorCustom definitions.
	Validate ValidateFunc `yaml:"-" json:"-"`
}

// TransformerDefinition is one declarative value transform on a column.
type TransformerDefinition struct {
	Kind TransformerKind `yaml:"kind"`

	// Transform backs TransformCustom definitions.
	Transform TransformFunc `yaml:"-" json:"-"`
}

// ColumnDefinition declares one column of a sheet.
type ColumnDefinition struct {
	ID    string    `yaml:"id"`
	Label string    `yaml:"label,omitempty"`
	Type  FieldType `yaml:"type"`

	// EnumValues is the allowed value set for TypeEnum columns.
	EnumValues []string `yaml:"enumValues,omitempty"`

	// ReferenceColumn names the column whose present values form the
	// allowed set for TypeReference columns. ReferenceSheet optionally
	// restricts the scan to one sheet; empty means all sheets.
	ReferenceSheet  string `yaml:"referenceSheet,omitempty"`
	ReferenceColumn string `yaml:"referenceColumn,omitempty"`

	Validators   []ValidatorDefinition   `yaml:"validators,omitempty"`
	Transformers []TransformerDefinition `yaml:"transformers,omitempty"`
}

// SheetDefinition declares one logical table of the import.
// Immutable after load.
type SheetDefinition struct {
	ID      string             `yaml:"id"`
	Label   string             `yaml:"label,omitempty"`
	Columns []ColumnDefinition `yaml:"columns"`
}

// Column returns the column with the given id, or false.
func (s SheetDefinition) Column(id string) (ColumnDefinition, bool) {
	for _, c := range s.Columns {
		if c.ID == id {
			return c, true
		}
	}
	return ColumnDefinition{}, false
}

var validTypes = map[FieldType]bool{
	TypeText:      true,
	TypeNumber:    true,
	TypeBoolean:   true,
	TypeEnum:      true,
	TypeReference: true,
}

var validValidatorKinds = map[ValidatorKind]bool{
	ValidatorRequired: true,
	ValidatorIncludes: true,
	ValidatorRegex:    true,
	ValidatorUnique:   true,
	ValidatorCustom:   true,
}

var validTransformerKinds = map[TransformerKind]bool{
	TransformTrim:      true,
	TransformLowercase: true,
	TransformUppercase: true,
	TransformNumber:    true,
	TransformDate:      true,
	TransformCustom:    true,
}

// Validate checks a set of sheet definitions for structural problems.
// All problems are reported at once so misconfiguration fails fast and
// completely.
func Validate(sheets []SheetDefinition) error {
	var errs []string

	seenSheets := make(map[string]bool)
	for _, sheet := range sheets {
		if sheet.ID == "" {
			errs = append(errs, "sheet with empty id")
			continue
		}
		if seenSheets[sheet.ID] {
			errs = append(errs, fmt.Sprintf("duplicate sheet id %q", sheet.ID))
		}
		seenSheets[sheet.ID] = true

		if len(sheet.Columns) == 0 {
			errs = append(errs, fmt.Sprintf("sheet %q has no columns", sheet.ID))
		}

		seenCols := make(map[string]bool)
		for _, col := range sheet.Columns {
			loc := fmt.Sprintf("sheet %q column %q", sheet.ID, col.ID)
			if col.ID == "" {
				errs = append(errs, fmt.Sprintf("sheet %q has a column with empty id", sheet.ID))
				continue
			}
			if seenCols[col.ID] {
				errs = append(errs, fmt.Sprintf("%s: duplicate column id", loc))
			}
			seenCols[col.ID] = true

			if col.Type != "" && !validTypes[col.Type] {
				errs = append(errs, fmt.Sprintf("%s: unknown type %q", loc, col.Type))
			}
			if col.Type == TypeEnum && len(col.EnumValues) == 0 {
				errs = append(errs, fmt.Sprintf("%s: enum type requires enumValues", loc))
			}
			if col.Type == TypeReference && col.ReferenceColumn == "" {
				errs = append(errs, fmt.Sprintf("%s: reference type requires referenceColumn", loc))
			}

			for _, v := range col.Validators {
				if !validValidatorKinds[v.Kind] {
					errs = append(errs, fmt.Sprintf("%s: unknown validator kind %q", loc, v.Kind))
				}
				if v.Kind == ValidatorIncludes && len(v.Values) == 0 {
					errs = append(errs, fmt.Sprintf("%s: includes validator requires values", loc))
				}
				if v.Kind == ValidatorRegex && v.Pattern == "" {
					errs = append(errs, fmt.Sprintf("%s: regex validator requires pattern", loc))
				}
				if v.Kind == ValidatorCustom && v.Validate == nil {
					errs = append(errs, fmt.Sprintf("%s: custom validator requires a Validate func", loc))
				}
			}
			for _, tr := range col.Transformers {
				if !validTransformerKinds[tr.Kind] {
					errs = append(errs, fmt.Sprintf("%s: unknown transformer kind %q", loc, tr.Kind))
				}
				if tr.Kind == TransformCustom && tr.Transform == nil {
					errs = append(errs, fmt.Sprintf("%s: custom transformer requires a Transform func", loc))
				}
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid schema:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
