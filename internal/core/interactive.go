package core

import (
	"context"
	"sync"
	"time"
)

// DefaultDebounce is the settle window between the last qualifying edit and
// the validation run it schedules.
const DefaultDebounce = 300 * time.Millisecond

// Saver persists a state snapshot after each committed change. Failures are
// absorbed by the saver itself; the engine never surfaces them.
type Saver func(ImporterState)

// Interactive drives asynchronous validation over a live importer state.
// It owns exactly two mutable resources: the current state value and a
// single debounce timer handle. Starting a new debounce window always
// cancels and replaces the existing timer, so no two timers coexist.
//
// Staleness is handled with a monotonically increasing run id rather than
// cancellation: every qualifying dispatch claims a fresh run id, and the
// reducer discards any VALIDATION_COMPLETED whose run id no longer matches.
// In-flight validator work for superseded runs is left to finish and its
// output ignored.
type Interactive struct {
	engine   *Engine
	debounce time.Duration
	hook     Hook
	saver    Saver

	mu        sync.Mutex
	state     ImporterState
	timer     *time.Timer
	nextRunID int64
}

// InteractiveOption configures an Interactive orchestrator.
type InteractiveOption func(*Interactive)

// WithDebounce overrides the settle window.
func WithDebounce(d time.Duration) InteractiveOption {
	return func(o *Interactive) { o.debounce = d }
}

// WithHook installs an observability hook shared with the engine.
func WithHook(h Hook) InteractiveOption {
	return func(o *Interactive) { o.hook = h }
}

// WithSaver installs a persistence callback invoked after every dispatch
// and every committed validation result.
func WithSaver(s Saver) InteractiveOption {
	return func(o *Interactive) { o.saver = s }
}

// NewInteractive creates an interactive orchestrator over a base state.
func NewInteractive(base ImporterState, opts ...InteractiveOption) *Interactive {
	o := &Interactive{
		state:     base,
		debounce:  DefaultDebounce,
		nextRunID: base.ValidationRunID,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.engine = NewEngine(o.hook)
	return o
}

// State returns the current state value.
func (o *Interactive) State() ImporterState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Dispatch applies a batch of actions atomically and, when the batch
// contains an action that mandates revalidation, schedules a debounced
// validation run. VALIDATION_STARTED is dispatched synchronously before
// the batch so readers see "validating" immediately.
func (o *Interactive) Dispatch(actions ...Action) {
	o.mu.Lock()

	needsValidation := false
	for _, a := range actions {
		if RequiresValidation(a) {
			needsValidation = true
			break
		}
	}

	var runID int64
	if needsValidation {
		o.nextRunID++
		runID = o.nextRunID
		o.state = Reduce(o.state, ValidationStarted{RunID: runID})
	}

	for _, a := range actions {
		o.state = Reduce(o.state, a)
	}

	if needsValidation {
		// Only the most recent edit's timer survives.
		if o.timer != nil {
			o.timer.Stop()
		}
		o.timer = time.AfterFunc(o.debounce, func() { o.commit(runID) })
		o.hook.emit(Event{Kind: EventRunScheduled, RunID: runID})
	}

	snapshot := o.state
	saver := o.saver
	o.mu.Unlock()

	if saver != nil {
		saver(snapshot)
	}
}

// commit recomputes validation for the current state and delivers the
// result under the run id captured at dispatch time. The reducer drops the
// result if a newer run has started since. Validation faults fall back to
// the previous error list, but the in-progress flag is still cleared for
// the latest run so the state does not wedge in "validating".
func (o *Interactive) commit(runID int64) {
	o.mu.Lock()
	snapshot := o.state
	o.mu.Unlock()

	// The fan-out runs outside the lock; edits arriving meanwhile bump
	// the run id and this result is discarded below.
	errs, err := computeValidation(context.Background(), o.engine, snapshot)

	o.mu.Lock()
	if err != nil {
		if o.state.ValidationRunID == runID {
			o.state.ValidationInProgress = false
		}
		o.mu.Unlock()
		return
	}

	before := o.state.ValidationRunID
	o.state = Reduce(o.state, ValidationCompleted{RunID: runID, Errors: errs})
	committed := before == runID

	snapshot = o.state
	saver := o.saver
	o.mu.Unlock()

	if committed {
		o.hook.emit(Event{Kind: EventRunCommitted, RunID: runID, Errors: len(errs)})
		if saver != nil {
			saver(snapshot)
		}
	} else {
		o.hook.emit(Event{Kind: EventRunSuperseded, RunID: runID})
	}
}

// Flush cancels any pending debounce timer and runs the validation it
// would have run, synchronously. Useful before submission and in tests.
func (o *Interactive) Flush() {
	o.mu.Lock()
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	runID := o.nextRunID
	o.mu.Unlock()

	o.commit(runID)
}

// Close releases the debounce timer. Pending results are abandoned.
func (o *Interactive) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
}
