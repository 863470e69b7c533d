package pipeline

import (
	"fmt"
	"strings"
	"time"

	"trendmerch/naming"
	"trendmerch/styles"
)

// Status is the outcome of one topic.
type Status string

const (
	StatusSucceeded     Status = "succeeded"
	StatusSkippedCached Status = "skipped-cached"
	StatusFailed        Status = "failed"
)

// Reason codes attached to failed items and aborted runs.
const (
	ReasonUnknownStyle      = "unknown-style"
	ReasonInvalidTopic      = "invalid-topic"
	ReasonAuth              = "auth"
	ReasonInferenceFailed   = "inference-failed"
	ReasonInferenceRejected = "inference-rejected"
	ReasonBgRemoval         = "bg-removal"
	ReasonDecode            = "decode"
	ReasonResize            = "resize"
	ReasonPostProcess       = "postprocess"
	ReasonWrite             = "write"
	ReasonCache             = "cache"
)

// ItemResult is the outcome of one topic.
type ItemResult struct {
	Topic    string
	Slug     string
	Status   Status
	Reason   string
	Attempts int
	// CachedAt is set for skipped-cached items.
	CachedAt time.Time
	Output   *naming.OutputRecord
	Err      error
	Duration time.Duration
}

// RunResult aggregates the items of one run.
type RunResult struct {
	RunID     string
	Mode      string
	Style     styles.Key
	Requested int
	Items     []ItemResult
	// Shortfall is how many fewer usable topics than Requested were available.
	Shortfall int
	// Aborted is set when a run-fatal error stopped processing.
	Aborted     bool
	AbortReason string
	// Interrupted is set when the caller canceled between topics.
	Interrupted bool
	// NotProcessed counts selected topics left untouched by an abort or interrupt.
	NotProcessed int
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Succeeded returns the number of designs written.
func (r *RunResult) Succeeded() int { return r.count(StatusSucceeded) }

// Skipped returns the number of topics skipped as fresh in the cache.
func (r *RunResult) Skipped() int { return r.count(StatusSkippedCached) }

// Failed returns the number of failed topics.
func (r *RunResult) Failed() int { return r.count(StatusFailed) }

func (r *RunResult) count(s Status) int {
	n := 0
	for _, item := range r.Items {
		if item.Status == s {
			n++
		}
	}
	return n
}

// Duration returns how long the run took.
func (r *RunResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Outputs returns the records of all written designs in order.
func (r *RunResult) Outputs() []naming.OutputRecord {
	var out []naming.OutputRecord
	for _, item := range r.Items {
		if item.Output != nil {
			out = append(out, *item.Output)
		}
	}
	return out
}

// FailureReasons counts failed items by reason code.
func (r *RunResult) FailureReasons() map[string]int {
	reasons := make(map[string]int)
	for _, item := range r.Items {
		if item.Status == StatusFailed {
			reasons[item.Reason]++
		}
	}
	return reasons
}

// Summary returns a plain one-line summary, e.g.
// "2 succeeded, 1 skipped-cached, 1 failed (inference-failed: 1)".
func (r *RunResult) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d succeeded, %d skipped-cached, %d failed",
		r.Succeeded(), r.Skipped(), r.Failed())

	reasons := r.FailureReasons()
	if len(reasons) > 0 {
		parts := make([]string, 0, len(reasons))
		for _, item := range r.Items {
			if item.Status != StatusFailed {
				continue
			}
			if n, ok := reasons[item.Reason]; ok {
				parts = append(parts, fmt.Sprintf("%s: %d", item.Reason, n))
				delete(reasons, item.Reason)
			}
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
	}
	if r.Shortfall > 0 {
		fmt.Fprintf(&b, "; %d fewer topics than requested", r.Shortfall)
	}
	if r.Aborted {
		fmt.Fprintf(&b, "; run aborted: %s", r.AbortReason)
	}
	if r.Interrupted {
		fmt.Fprintf(&b, "; interrupted with %d topics left", r.NotProcessed)
	}
	return b.String()
}
