package pipeline

import (
	"errors"
	"fmt"

	"trendmerch/trends"
)

var (
	// ErrAuth marks a run stopped by a rejected or missing credential.
	ErrAuth = errors.New("pipeline: credential rejected")
	// ErrNoTopics is returned when no usable topic remains after filtering.
	ErrNoTopics = trends.ErrNoTopics
)

// RunAbortedError is returned together with the partial RunResult when a
// run-fatal error stopped processing.
type RunAbortedError struct {
	Reason string
	Topic  string
	Err    error
}

func (e *RunAbortedError) Error() string {
	return fmt.Sprintf("pipeline: run aborted (%s) at topic %q: %v", e.Reason, e.Topic, e.Err)
}

// Unwrap exposes ErrAuth for auth aborts as well as the cause.
func (e *RunAbortedError) Unwrap() []error {
	if e.Reason == ReasonAuth {
		return []error{ErrAuth, e.Err}
	}
	return []error{e.Err}
}

// IsAborted reports whether err is a RunAbortedError.
func IsAborted(err error) bool {
	var abortErr *RunAbortedError
	return errors.As(err, &abortErr)
}
