package report

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/playcheck/playcheck/internal/diag"
	"github.com/playcheck/playcheck/internal/input"
	"github.com/playcheck/playcheck/internal/probe"
	"github.com/playcheck/playcheck/internal/session"
	"github.com/playcheck/playcheck/internal/snapshot"
)

// Verdict is the final classification of a run.
type Verdict string

const (
	VerdictPass Verdict = "pass"
	VerdictFail Verdict = "fail"
)

// Report aggregates everything one run observed. Built exactly once, at the
// end of the run; immutable thereafter.
type Report struct {
	RunID        string              `json:"run_id"`
	Verdict      Verdict             `json:"verdict"`
	Events       []diag.Event        `json:"events,omitempty"`
	Snapshots    []snapshot.Snapshot `json:"snapshots,omitempty"`
	State        *probe.Result       `json:"state,omitempty"`
	SessionState session.State       `json:"session_state"`
	InputStats   input.Stats         `json:"input_stats"`
	Started      time.Time           `json:"started"`
	Finished     time.Time           `json:"finished"`
}

// warningPreviewCap bounds how many warnings the rendered report lists.
const warningPreviewCap = 5

// New computes the verdict and freezes the run's artifacts into a Report.
// The verdict fails iff an unfiltered error-severity event exists or the
// session never reached ready — warnings and filtered noise never flip it.
func New(col *diag.Collector, caps []snapshot.Snapshot, state *probe.Result,
	sessState session.State, stats input.Stats, started time.Time) *Report {

	verdict := VerdictPass
	if len(col.Blocking()) > 0 || !sessionWasReady(sessState) {
		verdict = VerdictFail
	}

	return &Report{
		RunID:        uuid.NewString(),
		Verdict:      verdict,
		Events:       col.Events(),
		Snapshots:    caps,
		State:        state,
		SessionState: sessState,
		InputStats:   stats,
		Started:      started,
		Finished:     time.Now(),
	}
}

// sessionWasReady accepts ready, and stopped-after-ready (teardown runs
// before the report is printed).
func sessionWasReady(st session.State) bool {
	return st == session.StateReady || st == session.StateStopped
}

// ExitCode maps the verdict to the process exit status.
func (r *Report) ExitCode() int {
	if r.Verdict == VerdictPass {
		return 0
	}
	return 1
}

// Render writes the human-readable summary. Every recorded event is
// accounted for: filtered ones are shown as filtered, not hidden.
func (r *Report) Render(w io.Writer) {
	fmt.Fprintf(w, "=== inspection report %s ===\n", r.RunID)

	var errs, filtered []diag.Event
	var warns []diag.Event
	for _, ev := range r.Events {
		switch {
		case ev.Severity == diag.SeverityError && ev.Filtered:
			filtered = append(filtered, ev)
		case ev.Severity == diag.SeverityError:
			errs = append(errs, ev)
		case ev.Severity == diag.SeverityWarning:
			warns = append(warns, ev)
		}
	}

	if len(errs) == 0 {
		fmt.Fprintln(w, "No JavaScript errors")
	} else {
		fmt.Fprintf(w, "JavaScript errors (%d):\n", len(errs))
		for _, ev := range errs {
			fmt.Fprintf(w, "  [%d] %s: %s\n", ev.Seq, ev.Source, ev.Message)
		}
	}

	for _, ev := range filtered {
		fmt.Fprintf(w, "  (filtered) [%d] %s: %s\n", ev.Seq, ev.Source, ev.Message)
	}

	if len(warns) > 0 {
		fmt.Fprintf(w, "Warnings (%d", len(warns))
		if len(warns) > warningPreviewCap {
			fmt.Fprintf(w, ", first %d shown", warningPreviewCap)
		}
		fmt.Fprintln(w, "):")
		for i, ev := range warns {
			if i == warningPreviewCap {
				break
			}
			fmt.Fprintf(w, "  [%d] %s\n", ev.Seq, ev.Message)
		}
	}

	if r.State != nil {
		fmt.Fprintf(w, "Extracted state %q: %s\n", r.State.Name, string(r.State.Value))
	} else {
		fmt.Fprintln(w, "No exposed state")
	}

	if len(r.Snapshots) > 0 {
		fmt.Fprintln(w, "Snapshots:")
		for _, s := range r.Snapshots {
			fmt.Fprintf(w, "  %s\n", s.Path)
		}
	}

	fmt.Fprintf(w, "Input: %d presses, %d flips", r.InputStats.Presses, r.InputStats.Flips)
	if r.InputStats.Aborted {
		fmt.Fprint(w, " (stopped early on error)")
	}
	fmt.Fprintln(w)

	if r.Verdict == VerdictPass {
		fmt.Fprintln(w, "RESULT: PASS")
	} else {
		fmt.Fprintln(w, "RESULT: FAIL")
	}
}
