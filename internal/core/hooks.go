package core

import "time"

// EventKind labels an observability event emitted by the engine and the
// interactive orchestrator.
type EventKind string

const (
	EventFullValidation        EventKind = "validation.full"
	EventIncrementalValidation EventKind = "validation.incremental"
	EventValidationFailed      EventKind = "validation.failed"
	EventRunScheduled          EventKind = "run.scheduled"
	EventRunCommitted          EventKind = "run.committed"
	EventRunSuperseded         EventKind = "run.superseded"
)

// Event is one structured timing/count observation. The engine has no
// direct dependency on a log sink; callers install a Hook that forwards
// events wherever they want (slog, metrics, test capture).
type Event struct {
	Kind     EventKind
	RunID    int64
	Sheets   int
	Rows     int
	Errors   int
	Duration time.Duration
	Err      error
}

// Hook receives engine events. A nil hook disables observation.
type Hook func(Event)

func (h Hook) emit(e Event) {
	if h != nil {
		h(e)
	}
}
