package core

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/tablekit/tablekit/internal/schema"
)

// Validator evaluates one rule against a cell. An empty message means the
// value passed. A non-nil error marks the whole validation run as broken;
// the caller must fall back to the previous error list.
type Validator interface {
	Validate(ctx context.Context, value any, row Row) (string, error)
}

// ValidatorFunc adapts a plain function to the Validator interface.
type ValidatorFunc func(ctx context.Context, value any, row Row) (string, error)

func (f ValidatorFunc) Validate(ctx context.Context, value any, row Row) (string, error) {
	return f(ctx, value, row)
}

// Env gives validator builders access to the full cross-sheet state at
// build time. Reference validators recompute their allowed set from it on
// every validation call; nothing is cached between calls.
type Env struct {
	Definitions []schema.SheetDefinition
	Data        map[string][]Row
}

// ValidatorBuilder turns one definition into an executable validator.
type ValidatorBuilder func(def schema.ValidatorDefinition, col schema.ColumnDefinition, env *Env) (Validator, error)

var (
	validatorRegistry   = make(map[schema.ValidatorKind]ValidatorBuilder)
	validatorRegistryMu sync.RWMutex
)

// RegisterValidator adds a validator builder to the registry.
// Panics if the kind is already registered.
func RegisterValidator(kind schema.ValidatorKind, builder ValidatorBuilder) {
	validatorRegistryMu.Lock()
	defer validatorRegistryMu.Unlock()

	if _, exists := validatorRegistry[kind]; exists {
		panic(fmt.Sprintf("validator kind already registered: %s", kind))
	}
	validatorRegistry[kind] = builder
}

func lookupValidatorBuilder(kind schema.ValidatorKind) (ValidatorBuilder, bool) {
	validatorRegistryMu.RLock()
	defer validatorRegistryMu.RUnlock()
	b, ok := validatorRegistry[kind]
	return b, ok
}

// BuildValidators returns the effective validator list for a column:
// explicit definitions followed by the definitions implied by its type.
func BuildValidators(col schema.ColumnDefinition, env *Env) ([]Validator, error) {
	defs := EffectiveValidatorDefs(col)

	out := make([]Validator, 0, len(defs))
	for _, def := range defs {
		builder, ok := lookupValidatorBuilder(def.Kind)
		if !ok {
			return nil, fmt.Errorf("column %q: no builder for validator kind %q", col.ID, def.Kind)
		}
		v, err := builder(def, col, env)
		if err != nil {
			return nil, fmt.Errorf("column %q: build %s validator: %w", col.ID, def.Kind, err)
		}
		if def.When != nil {
			v = conditional{when: def.When, inner: v}
		}
		out = append(out, v)
	}
	return out, nil
}

// EffectiveValidatorDefs returns explicit definitions plus the automatic
// ones derived from the column's declared type.
func EffectiveValidatorDefs(col schema.ColumnDefinition) []schema.ValidatorDefinition {
	defs := make([]schema.ValidatorDefinition, 0, len(col.Validators)+1)
	defs = append(defs, col.Validators...)

	switch col.Type {
	case schema.TypeEnum:
		defs = append(defs, schema.ValidatorDefinition{
			Kind:   schema.ValidatorIncludes,
			Values: col.EnumValues,
		})
	case schema.TypeReference:
		// Marker definition; the includes builder resolves the allowed
		// set from the environment when the column carries a reference.
		defs = append(defs, schema.ValidatorDefinition{
			Kind: schema.ValidatorIncludes,
		})
	}
	return defs
}

// FieldIsRequired reports whether a column carries a required validator.
// With skipConditionCheck the conditional predicate is ignored; otherwise a
// required validator guarded by a When predicate does not count.
func FieldIsRequired(col schema.ColumnDefinition, skipConditionCheck bool) bool {
	for _, def := range col.Validators {
		if def.Kind != schema.ValidatorRequired {
			continue
		}
		if skipConditionCheck || def.When == nil {
			return true
		}
	}
	return false
}

// conditional wraps a validator with its applicability predicate.
type conditional struct {
	when  schema.ConditionFunc
	inner Validator
}

func (c conditional) Validate(ctx context.Context, value any, row Row) (string, error) {
	if !c.when(row) {
		return "", nil
	}
	return c.inner.Validate(ctx, value, row)
}

// ReferenceValues collects the distinct present values of the referenced
// column across sheets. When refSheet is empty every sheet is scanned.
// Recomputed on every validation call so edits to the referenced data are
// picked up immediately.
func ReferenceValues(env *Env, refSheet, refColumn string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, def := range env.Definitions {
		if refSheet != "" && def.ID != refSheet {
			continue
		}
		if _, ok := def.Column(refColumn); !ok {
			continue
		}
		for _, row := range env.Data[def.ID] {
			v := row[refColumn]
			if IsEmptyCell(v) {
				continue
			}
			s := CellString(v)
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

func init() {
	RegisterValidator(schema.ValidatorRequired, buildRequired)
	RegisterValidator(schema.ValidatorIncludes, buildIncludes)
	RegisterValidator(schema.ValidatorRegex, buildRegex)
	RegisterValidator(schema.ValidatorUnique, buildUnique)
	RegisterValidator(schema.ValidatorCustom, buildCustom)
}

func buildRequired(def schema.ValidatorDefinition, col schema.ColumnDefinition, _ *Env) (Validator, error) {
	msg := def.Message
	if msg == "" {
		msg = "field is required"
	}
	return ValidatorFunc(func(_ context.Context, value any, _ Row) (string, error) {
		if IsEmptyCell(value) {
			return msg, nil
		}
		return "", nil
	}), nil
}

func buildIncludes(def schema.ValidatorDefinition, col schema.ColumnDefinition, env *Env) (Validator, error) {
	// Static value set from the definition, or a per-call reference scan.
	if len(def.Values) > 0 || col.Type != schema.TypeReference {
		return includesValidator(def.Values, def.Message), nil
	}
	allowed := ReferenceValues(env, col.ReferenceSheet, col.ReferenceColumn)
	msg := def.Message
	if msg == "" {
		msg = fmt.Sprintf("value not found in %s", col.ReferenceColumn)
	}
	return includesValidator(allowed, msg), nil
}

func includesValidator(allowed []string, msg string) Validator {
	if msg == "" {
		msg = fmt.Sprintf("value must be one of: %s", strings.Join(allowed, ", "))
	}
	return ValidatorFunc(func(_ context.Context, value any, _ Row) (string, error) {
		if IsEmptyCell(value) {
			return "", nil
		}
		s := CellString(value)
		for _, v := range allowed {
			if strings.EqualFold(v, s) {
				return "", nil
			}
		}
		return msg, nil
	})
}

func buildRegex(def schema.ValidatorDefinition, col schema.ColumnDefinition, _ *Env) (Validator, error) {
	re, err := regexp.Compile(def.Pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", def.Pattern, err)
	}
	msg := def.Message
	if msg == "" {
		msg = fmt.Sprintf("value must match %s", def.Pattern)
	}
	return ValidatorFunc(func(_ context.Context, value any, _ Row) (string, error) {
		if IsEmptyCell(value) {
			return "", nil
		}
		if !re.MatchString(CellString(value)) {
			return msg, nil
		}
		return "", nil
	}), nil
}

func buildUnique(def schema.ValidatorDefinition, col schema.ColumnDefinition, env *Env) (Validator, error) {
	// Count occurrences across all sheets that declare this column, at
	// build time, so evaluation stays O(1) per cell.
	counts := make(map[string]int)
	for _, sheetDef := range env.Definitions {
		if _, ok := sheetDef.Column(col.ID); !ok {
			continue
		}
		for _, row := range env.Data[sheetDef.ID] {
			v := row[col.ID]
			if IsEmptyCell(v) {
				continue
			}
			counts[strings.ToLower(CellString(v))]++
		}
	}
	msg := def.Message
	if msg == "" {
		msg = "value must be unique"
	}
	return ValidatorFunc(func(_ context.Context, value any, _ Row) (string, error) {
		if IsEmptyCell(value) {
			return "", nil
		}
		if counts[strings.ToLower(CellString(value))] > 1 {
			return msg, nil
		}
		return "", nil
	}), nil
}

func buildCustom(def schema.ValidatorDefinition, col schema.ColumnDefinition, _ *Env) (Validator, error) {
	if def.Validate == nil {
		return nil, fmt.Errorf("custom validator has no Validate func")
	}
	fn := def.Validate
	return ValidatorFunc(func(ctx context.Context, value any, row Row) (string, error) {
		return fn(ctx, value, map[string]any(row))
	}), nil
}
