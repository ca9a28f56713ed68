package input

import (
	"context"
	"log/slog"
	"time"

	"github.com/playcheck/playcheck/internal/browser"
)

// Stats summarizes one simulation run.
type Stats struct {
	Presses int  `json:"presses"`
	Flips   int  `json:"flips"`
	Aborted bool `json:"aborted"` // stopped early on a blocking error
}

// Simulator executes a Plan against a page. Single goroutine, cooperative:
// each iteration sleeps the press cadence, consults the blocking-errors view,
// then dispatches. Nothing here runs concurrently with other page operations.
type Simulator struct {
	plan Plan
}

func NewSimulator(plan Plan) *Simulator {
	return &Simulator{plan: plan}
}

// Run drives the plan until the window elapses, the context is canceled, or
// blocking reports an error. Whatever happens, a held key is released before
// returning.
func (s *Simulator) Run(ctx context.Context, drv browser.Driver, blocking func() bool) (Stats, error) {
	var stats Stats
	plan := s.plan

	held := plan.HoldKeys[0]
	if err := drv.Key(ctx, held, browser.KeyHoldBegin); err != nil {
		return stats, err
	}
	defer func() {
		// Release on every exit path, including errors and early exit.
		if err := drv.Key(context.WithoutCancel(ctx), held, browser.KeyHoldEnd); err != nil {
			slog.Warn("release held key", "key", held, "err", err)
		}
	}()

	// The window and cadence fix the schedule up front: a 6s window at
	// 400ms is exactly 15 presses unless an error cuts the loop short.
	total := int(plan.Window / plan.PressEvery)
	for i := 0; i < total; i++ {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case <-time.After(plan.PressEvery):
		}

		if blocking != nil && blocking() {
			stats.Aborted = true
			slog.Info("input loop stopped on blocking error", "presses", stats.Presses)
			return stats, nil
		}

		if err := drv.Key(ctx, plan.JumpKey, browser.KeyPress); err != nil {
			return stats, err
		}
		stats.Presses++

		if stats.Presses%plan.FlipEvery == 0 && len(plan.HoldKeys) > 1 {
			next := plan.HoldKeys[(indexOf(plan.HoldKeys, held)+1)%len(plan.HoldKeys)]
			if err := drv.Key(ctx, held, browser.KeyHoldEnd); err != nil {
				return stats, err
			}
			if err := drv.Key(ctx, next, browser.KeyHoldBegin); err != nil {
				// The old key is already up; track the new one for release.
				held = next
				return stats, err
			}
			held = next
			stats.Flips++
		}
	}

	slog.Debug("input window complete", "presses", stats.Presses, "flips", stats.Flips)
	return stats, nil
}

func indexOf(keys []string, key string) int {
	for i, k := range keys {
		if k == key {
			return i
		}
	}
	return 0
}
