package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
)

// PrintSummary writes a colored report of result to w: one line per item
// followed by the totals.
func PrintSummary(w io.Writer, result *RunResult) {
	if result == nil {
		return
	}

	fmt.Fprintln(w)
	color.New(color.FgCyan, color.Bold).Fprintf(w, "━━━ Run %s ━━━\n", shortID(result.RunID))
	fmt.Fprintln(w)

	dim := color.New(color.FgHiBlack)
	for _, item := range result.Items {
		switch item.Status {
		case StatusSucceeded:
			color.New(color.FgGreen).Fprintf(w, "  ✓ %s", item.Topic)
			if item.Output != nil {
				dim.Fprintf(w, " - %s (%dx%d)", item.Output.Filename, item.Output.Width, item.Output.Height)
			}
		case StatusSkippedCached:
			color.New(color.FgYellow).Fprintf(w, "  ○ %s", item.Topic)
			dim.Fprintf(w, " - cached %s", item.CachedAt.Format(time.RFC3339))
		default:
			color.New(color.FgRed).Fprintf(w, "  ✗ %s", item.Topic)
			dim.Fprintf(w, " - %s", item.Reason)
			if item.Err != nil {
				fmt.Fprintln(w)
				color.New(color.FgRed).Fprintf(w, "    └─ %s", item.Err.Error())
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w)
	headline := color.New(color.FgGreen, color.Bold)
	switch {
	case result.Aborted:
		headline = color.New(color.FgRed, color.Bold)
		headline.Fprintf(w, "━━━ Run Aborted: %s ", result.AbortReason)
	case result.Interrupted:
		headline = color.New(color.FgYellow, color.Bold)
		headline.Fprintf(w, "━━━ Run Interrupted ")
	case result.Failed() > 0:
		headline = color.New(color.FgYellow, color.Bold)
		headline.Fprintf(w, "━━━ Run Finished With Failures ")
	default:
		headline.Fprintf(w, "━━━ Run Finished ")
	}
	dim.Fprintf(w, "(%s in %v)", result.Summary(), result.Duration().Round(time.Millisecond))
	headline.Fprintln(w, " ━━━")
	fmt.Fprintln(w)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
