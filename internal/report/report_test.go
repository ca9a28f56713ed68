package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playcheck/playcheck/internal/diag"
	"github.com/playcheck/playcheck/internal/input"
	"github.com/playcheck/playcheck/internal/probe"
	"github.com/playcheck/playcheck/internal/session"
	"github.com/playcheck/playcheck/internal/snapshot"
)

func build(col *diag.Collector, st session.State) *Report {
	return New(col, nil, nil, st, input.Stats{}, time.Now())
}

func TestVerdictPassWhenClean(t *testing.T) {
	r := build(diag.NewCollector(nil), session.StateReady)
	assert.Equal(t, VerdictPass, r.Verdict)
	assert.Equal(t, 0, r.ExitCode())
	assert.NotEmpty(t, r.RunID)
}

func TestVerdictFailOnUnfilteredError(t *testing.T) {
	col := diag.NewCollector(nil)
	col.Record(diag.SeverityError, diag.SourceException, "Uncaught TypeError")
	r := build(col, session.StateReady)
	assert.Equal(t, VerdictFail, r.Verdict)
	assert.Equal(t, 1, r.ExitCode())
}

func TestVerdictIgnoresFilteredErrors(t *testing.T) {
	col := diag.NewCollector(diag.DefaultIgnoreRules)
	for i := 0; i < 10; i++ {
		col.Record(diag.SeverityError, diag.SourceConsole, "GET /favicon.ico 404 (Not Found)")
	}
	r := build(col, session.StateReady)
	assert.Equal(t, VerdictPass, r.Verdict, "filtered noise in any quantity never fails the run")
}

func TestVerdictIgnoresWarnings(t *testing.T) {
	col := diag.NewCollector(nil)
	col.Record(diag.SeverityWarning, diag.SourceConsole, "snapshot missed")
	r := build(col, session.StateReady)
	assert.Equal(t, VerdictPass, r.Verdict)
}

func TestVerdictFailWhenSessionNeverReady(t *testing.T) {
	r := build(diag.NewCollector(nil), session.StateFailed)
	assert.Equal(t, VerdictFail, r.Verdict)
}

func TestRenderCleanRun(t *testing.T) {
	var b strings.Builder
	build(diag.NewCollector(nil), session.StateReady).Render(&b)
	out := b.String()
	assert.Contains(t, out, "No JavaScript errors")
	assert.Contains(t, out, "No exposed state")
	assert.Contains(t, out, "RESULT: PASS")
}

func TestRenderListsEveryRecordedEvent(t *testing.T) {
	col := diag.NewCollector([]string{"favicon"})
	col.Record(diag.SeverityError, diag.SourceConsole, "favicon missing")
	col.Record(diag.SeverityError, diag.SourceException, "p.setup is not a function")

	var b strings.Builder
	build(col, session.StateReady).Render(&b)
	out := b.String()

	assert.Contains(t, out, "p.setup is not a function")
	assert.Contains(t, out, "(filtered)")
	assert.Contains(t, out, "favicon missing", "filtered events are shown, not hidden")
	assert.Contains(t, out, "RESULT: FAIL")
}

func TestRenderCapsWarningPreview(t *testing.T) {
	col := diag.NewCollector(nil)
	for i := 0; i < 9; i++ {
		col.Record(diag.SeverityWarning, diag.SourceConsole, "warn")
	}

	var b strings.Builder
	build(col, session.StateReady).Render(&b)
	out := b.String()

	assert.Contains(t, out, "Warnings (9, first 5 shown):")
	assert.Equal(t, 5, strings.Count(out, "] warn"))
}

func TestRenderStateAndSnapshots(t *testing.T) {
	col := diag.NewCollector(nil)
	caps := []snapshot.Snapshot{
		{Label: "initial", Path: "screenshots/t0_initial.png", Captured: time.Now()},
		{Label: "final", Path: "screenshots/t3_final.png", Captured: time.Now()},
	}
	state := &probe.Result{Name: "score", Value: []byte("42")}
	r := New(col, caps, state, session.StateReady, input.Stats{Presses: 15, Flips: 3}, time.Now())

	var b strings.Builder
	r.Render(&b)
	out := b.String()

	require.Contains(t, out, `Extracted state "score": 42`)
	assert.Contains(t, out, "screenshots/t0_initial.png")
	assert.Contains(t, out, "screenshots/t3_final.png")
	assert.Contains(t, out, "15 presses, 3 flips")
}

func TestRenderAbortedInput(t *testing.T) {
	col := diag.NewCollector(nil)
	col.Record(diag.SeverityError, diag.SourceConsole, "Cannot read properties of undefined")
	r := New(col, nil, nil, session.StateReady, input.Stats{Presses: 5, Aborted: true}, time.Now())

	var b strings.Builder
	r.Render(&b)
	assert.Contains(t, b.String(), "stopped early on error")
}
