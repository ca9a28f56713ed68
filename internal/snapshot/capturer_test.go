package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playcheck/playcheck/internal/browser"
	"github.com/playcheck/playcheck/internal/diag"
)

// shotStub returns a canned PNG payload, or fails when told to.
type shotStub struct {
	fail bool
	n    int
}

func (s *shotStub) Listen(browser.EventFunc)                             {}
func (s *shotStub) Navigate(context.Context, string) error               { return nil }
func (s *shotStub) Key(context.Context, string, browser.KeyAction) error { return nil }
func (s *shotStub) Close() error                                         { return nil }

func (s *shotStub) Evaluate(context.Context, string) (json.RawMessage, error) {
	return nil, nil
}

func (s *shotStub) Screenshot(context.Context) ([]byte, error) {
	if s.fail {
		return nil, fmt.Errorf("page gone")
	}
	s.n++
	return []byte(fmt.Sprintf("png-%d", s.n)), nil
}

func TestCaptureDeterministicPaths(t *testing.T) {
	dir := t.TempDir()
	c, err := NewCapturer(dir, diag.NewCollector(nil))
	require.NoError(t, err)

	drv := &shotStub{}
	for _, label := range []string{"initial", "after-start", "after-gameplay", "final"} {
		require.NoError(t, c.Capture(context.Background(), drv, label))
	}

	taken := c.Taken()
	require.Len(t, taken, 4)
	assert.Equal(t, filepath.Join(dir, "t0_initial.png"), taken[0].Path)
	assert.Equal(t, filepath.Join(dir, "t1_after_start.png"), taken[1].Path)
	assert.Equal(t, filepath.Join(dir, "t2_after_gameplay.png"), taken[2].Path)
	assert.Equal(t, filepath.Join(dir, "t3_final.png"), taken[3].Path)

	for _, s := range taken {
		_, err := os.Stat(s.Path)
		assert.NoError(t, err, "snapshot file %s", s.Path)
	}
}

func TestCaptureTimestampsIncrease(t *testing.T) {
	c, err := NewCapturer(t.TempDir(), diag.NewCollector(nil))
	require.NoError(t, err)

	drv := &shotStub{}
	labels := []string{"initial", "after-start", "after-gameplay", "final"}
	for _, l := range labels {
		require.NoError(t, c.Capture(context.Background(), drv, l))
	}

	taken := c.Taken()
	for i := 1; i < len(taken); i++ {
		assert.True(t, taken[i].Captured.After(taken[i-1].Captured) || taken[i].Captured.Equal(taken[i-1].Captured),
			"timestamps must not go backwards")
		assert.False(t, taken[i].Captured.Before(taken[i-1].Captured))
	}
}

func TestCaptureLabelReuseRejected(t *testing.T) {
	c, err := NewCapturer(t.TempDir(), diag.NewCollector(nil))
	require.NoError(t, err)

	drv := &shotStub{}
	require.NoError(t, c.Capture(context.Background(), drv, "initial"))
	assert.Error(t, c.Capture(context.Background(), drv, "initial"))
	assert.Len(t, c.Taken(), 1)
}

func TestCaptureFailureIsWarningNotError(t *testing.T) {
	col := diag.NewCollector(nil)
	c, err := NewCapturer(t.TempDir(), col)
	require.NoError(t, err)

	require.NoError(t, c.Capture(context.Background(), &shotStub{fail: true}, "initial"),
		"a missed frame must not abort the run")

	assert.Empty(t, c.Taken())
	warns := col.Warnings()
	require.Len(t, warns, 1)
	assert.Contains(t, warns[0].Message, `snapshot "initial"`)
	assert.False(t, col.HasBlocking(), "capture warnings never affect the verdict")
}

func TestFailedLabelStillConsumesIndex(t *testing.T) {
	c, err := NewCapturer(t.TempDir(), diag.NewCollector(nil))
	require.NoError(t, err)

	require.NoError(t, c.Capture(context.Background(), &shotStub{fail: true}, "initial"))
	drv := &shotStub{}
	require.NoError(t, c.Capture(context.Background(), drv, "final"))

	taken := c.Taken()
	require.Len(t, taken, 1)
	assert.Contains(t, taken[0].Path, "t1_final.png", "indices stay aligned with checkpoint order")
}
