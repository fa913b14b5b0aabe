package core

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tablekit/tablekit/internal/schema"
)

// TransformerBuilder turns one definition into an executable transform step.
type TransformerBuilder func(def schema.TransformerDefinition) (schema.TransformFunc, error)

var (
	transformerRegistry   = make(map[schema.TransformerKind]TransformerBuilder)
	transformerRegistryMu sync.RWMutex
)

// RegisterTransformer adds a transformer builder to the registry.
// Panics if the kind is already registered.
func RegisterTransformer(kind schema.TransformerKind, builder TransformerBuilder) {
	transformerRegistryMu.Lock()
	defer transformerRegistryMu.Unlock()

	if _, exists := transformerRegistry[kind]; exists {
		panic(fmt.Sprintf("transformer kind already registered: %s", kind))
	}
	transformerRegistry[kind] = builder
}

func lookupTransformerBuilder(kind schema.TransformerKind) (TransformerBuilder, bool) {
	transformerRegistryMu.RLock()
	defer transformerRegistryMu.RUnlock()
	b, ok := transformerRegistry[kind]
	return b, ok
}

// Pipeline is the ordered composition of a column's transform steps,
// applied left to right. Steps are total, synchronous, and side-effect
// free; there is no error channel at apply time. A panicking step is a
// defect in the column configuration and is allowed to propagate.
type Pipeline struct {
	steps []schema.TransformFunc
}

// NewPipeline builds a pipeline from a column's transformer definitions.
func NewPipeline(defs []schema.TransformerDefinition) (*Pipeline, error) {
	p := &Pipeline{steps: make([]schema.TransformFunc, 0, len(defs))}
	for _, def := range defs {
		builder, ok := lookupTransformerBuilder(def.Kind)
		if !ok {
			return nil, fmt.Errorf("no builder for transformer kind %q", def.Kind)
		}
		step, err := builder(def)
		if err != nil {
			return nil, fmt.Errorf("build %s transformer: %w", def.Kind, err)
		}
		p.steps = append(p.steps, step)
	}
	return p, nil
}

// Append adds a step to the end of the pipeline.
func (p *Pipeline) Append(step schema.TransformFunc) {
	p.steps = append(p.steps, step)
}

// Len returns the number of steps.
func (p *Pipeline) Len() int { return len(p.steps) }

// Apply runs the pipeline over one value. Empty cells pass through
// untouched.
func (p *Pipeline) Apply(v any) any {
	if IsEmptyCell(v) {
		return v
	}
	for _, step := range p.steps {
		v = step(v)
	}
	return v
}

// columnPipelines builds one pipeline per column that declares transformers.
func columnPipelines(def schema.SheetDefinition) (map[string]*Pipeline, error) {
	pipelines := make(map[string]*Pipeline)
	for _, col := range def.Columns {
		if len(col.Transformers) == 0 {
			continue
		}
		p, err := NewPipeline(col.Transformers)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", def.ID, err)
		}
		pipelines[col.ID] = p
	}
	return pipelines, nil
}

// TransformSheet applies every column's pipeline to every row of a sheet.
// Pipelines are built once and reused across rows. The input rows are not
// modified.
func TransformSheet(def schema.SheetDefinition, rows []Row) ([]Row, error) {
	pipelines, err := columnPipelines(def)
	if err != nil {
		return nil, err
	}
	if len(pipelines) == 0 {
		return rows, nil
	}

	out := make([]Row, len(rows))
	for i, row := range rows {
		out[i] = applyPipelines(pipelines, row)
	}
	return out, nil
}

// TransformRow applies a sheet's pipelines to a single row, used when one
// row's values must be rederived, e.g. right after mapping raw input.
func TransformRow(def schema.SheetDefinition, row Row) (Row, error) {
	pipelines, err := columnPipelines(def)
	if err != nil {
		return nil, err
	}
	if len(pipelines) == 0 {
		return row, nil
	}
	return applyPipelines(pipelines, row), nil
}

func applyPipelines(pipelines map[string]*Pipeline, row Row) Row {
	out := cloneRow(row)
	for colID, p := range pipelines {
		v, ok := out[colID]
		if !ok || IsEmptyCell(v) {
			continue
		}
		out[colID] = p.Apply(v)
	}
	return out
}

func init() {
	RegisterTransformer(schema.TransformTrim, func(schema.TransformerDefinition) (schema.TransformFunc, error) {
		return stringTransform(strings.TrimSpace), nil
	})
	RegisterTransformer(schema.TransformLowercase, func(schema.TransformerDefinition) (schema.TransformFunc, error) {
		return stringTransform(strings.ToLower), nil
	})
	RegisterTransformer(schema.TransformUppercase, func(schema.TransformerDefinition) (schema.TransformFunc, error) {
		return stringTransform(strings.ToUpper), nil
	})
	RegisterTransformer(schema.TransformNumber, func(schema.TransformerDefinition) (schema.TransformFunc, error) {
		return normalizeNumber, nil
	})
	RegisterTransformer(schema.TransformDate, func(schema.TransformerDefinition) (schema.TransformFunc, error) {
		return normalizeDate, nil
	})
	RegisterTransformer(schema.TransformCustom, func(def schema.TransformerDefinition) (schema.TransformFunc, error) {
		if def.Transform == nil {
			return nil, fmt.Errorf("custom transformer has no Transform func")
		}
		return def.Transform, nil
	})
}

// stringTransform lifts a string function to a TransformFunc that leaves
// non-string values alone.
func stringTransform(fn func(string) string) schema.TransformFunc {
	return func(v any) any {
		if s, ok := v.(string); ok {
			return fn(s)
		}
		return v
	}
}

// normalizeNumber parses common spreadsheet number formats into float64:
// currency symbols, thousands separators, and accounting-style negatives
// like "(123.45)". Unparseable values pass through unchanged so validation
// can report them.
func normalizeNumber(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return v
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "")
	s = strings.ReplaceAll(s, "£", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return v
	}
	if negative {
		f = -f
	}
	return f
}

// TwoDigitYearPivot defines how 2-digit years are interpreted: parsed years
// more than this many years in the future are pushed back a century.
var TwoDigitYearPivot = 20

var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
	}
)

// normalizeDate rewrites recognized date formats as ISO (YYYY-MM-DD).
// Unrecognized values pass through unchanged.
func normalizeDate(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return v
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t.Format("2006-01-02")
		}
	}
	return v
}
