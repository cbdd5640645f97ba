package core

// Phase is the evaluation state of a Route, Node or Plotter.
type Phase string

// Phase constants.
const (
	PhasePending    Phase = "pending"
	PhaseInProgress Phase = "in_progress"
	PhaseFinished   Phase = "finished"
)

// Status is the tri-state evaluation result of a tree element.
// A finished status carries either a value or an error, never both.
type Status[T any] struct {
	Phase Phase
	Value T
	Err   error
}

// Pending returns a status with no evaluation attempted.
func Pending[T any]() Status[T] {
	return Status[T]{Phase: PhasePending}
}

// InProgress returns a status for a running evaluation.
func InProgress[T any]() Status[T] {
	return Status[T]{Phase: PhaseInProgress}
}

// Success returns a finished status holding v.
func Success[T any](v T) Status[T] {
	return Status[T]{Phase: PhaseFinished, Value: v}
}

// Failure returns a finished status holding err.
func Failure[T any](err error) Status[T] {
	return Status[T]{Phase: PhaseFinished, Err: err}
}

// IsPending reports whether no evaluation has produced a result.
func (s Status[T]) IsPending() bool { return s.Phase == PhasePending || s.Phase == "" }

// IsInProgress reports whether an evaluation is running.
func (s Status[T]) IsInProgress() bool { return s.Phase == PhaseInProgress }

// Succeeded reports whether the status finished without error.
func (s Status[T]) Succeeded() bool { return s.Phase == PhaseFinished && s.Err == nil }

// Failed reports whether the status finished with an error.
func (s Status[T]) Failed() bool { return s.Phase == PhaseFinished && s.Err != nil }

// Label returns a short, stable label: pending, running, success or failure.
func (s Status[T]) Label() string {
	switch {
	case s.IsInProgress():
		return "running"
	case s.Succeeded():
		return "success"
	case s.Failed():
		return "failure"
	default:
		return "pending"
	}
}

// Describe returns a human-readable description of the status.
// Failures render the error text.
func (s Status[T]) Describe() string {
	if s.Failed() {
		return s.Err.Error()
	}
	return s.Label()
}
