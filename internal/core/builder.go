package core

import (
	"context"
)

// Builder accumulates the actions of one logical user operation and folds
// them into a validated state. It owns a pending-action queue; it is not
// meant to be shared across concurrent callers.
//
// The interactive variant (Interactive) composes a Builder-style fold with
// a debounce-and-commit policy instead of subclassing it.
type Builder struct {
	base    ImporterState
	engine  *Engine
	pending []Action
}

// NewBuilder creates a builder over a base state.
func NewBuilder(base ImporterState, engine *Engine) *Builder {
	if engine == nil {
		engine = NewEngine(nil)
	}
	return &Builder{base: base, engine: engine}
}

// Add queues one or more actions. Returns the builder for chaining.
func (b *Builder) Add(actions ...Action) *Builder {
	b.pending = append(b.pending, actions...)
	return b
}

// State folds all pending actions through the reducer, revalidates, and
// advances the builder's base so further Add/State calls continue from the
// returned state. Incremental validation is chosen iff the folded state
// carries a non-empty dirty-row map; otherwise a full pass runs. A broken
// validation run is swallowed here: the folded state keeps its pre-existing
// error list and its dirty map stays pending.
func (b *Builder) State(ctx context.Context) ImporterState {
	s := b.base
	for _, a := range b.pending {
		s = Reduce(s, a)
	}
	b.pending = nil

	b.base = revalidate(ctx, b.engine, s)
	return b.base
}

// revalidate computes the appropriate validation pass for a folded state
// and commits it through the reducer. Engine faults leave the state as
// folded: previous errors survive, dirty rows stay pending.
func revalidate(ctx context.Context, engine *Engine, s ImporterState) ImporterState {
	errs, err := computeValidation(ctx, engine, s)
	if err != nil {
		return s
	}
	return Reduce(s, ValidationCompleted{RunID: s.ValidationRunID, Errors: errs})
}

// computeValidation picks full vs incremental for a state and returns the
// error list that should replace the state's current one.
func computeValidation(ctx context.Context, engine *Engine, s ImporterState) ([]ValidationError, error) {
	if !s.DirtyRows.IsEmpty() {
		fresh, err := engine.ValidateRows(ctx, s.Definitions, s.SheetData, s.DirtyRows)
		if err != nil {
			return nil, err
		}
		return MergeErrors(s.ValidationErrors, s.DirtyRows, fresh), nil
	}
	return engine.Validate(ctx, s.Definitions, s.SheetData)
}
