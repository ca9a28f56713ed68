package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrStartupTimeout marks a self-managed server that never signaled
// readiness within its startup timeout. Fatal to the run.
var ErrStartupTimeout = errors.New("server startup failure")

// State is the lifecycle state of a session.
type State string

const (
	StateStarting State = "starting"
	StateReady    State = "ready"
	StateFailed   State = "failed"
	StateStopped  State = "stopped"
)

// Session wraps the served artifact's reachable address. Exactly one exists
// per run; Stop is idempotent and must run on every exit path.
type Session struct {
	BaseURL string

	mu       sync.Mutex
	state    State
	stopFn   func() error
	stopOnce sync.Once
	stopErr  error
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Stop releases whatever the session owns. Safe to call more than once;
// external sessions own nothing and stop is a no-op for them.
func (s *Session) Stop() error {
	s.stopOnce.Do(func() {
		if s.stopFn != nil {
			s.stopErr = s.stopFn()
		}
		s.setState(StateStopped)
	})
	return s.stopErr
}

// Options bounds session startup.
type Options struct {
	Timeout   time.Duration // readiness deadline, default 15s
	PollEvery time.Duration // readiness poll cadence, default 500ms
}

func (o *Options) applyDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.PollEvery <= 0 {
		o.PollEvery = 500 * time.Millisecond
	}
}

// External wraps a caller-supplied address. No lifecycle management: the
// caller owns the server, so the session starts ready and Stop is a no-op.
func External(baseURL string) *Session {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return &Session{
		BaseURL: strings.TrimRight(baseURL, "/"),
		state:   StateReady,
	}
}

// waitHTTP polls url until any HTTP response arrives, or the deadline passes.
func waitHTTP(ctx context.Context, url string, opts Options) error {
	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(opts.Timeout)

	for time.Now().Before(deadline) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode < 500 {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(opts.PollEvery):
		}
	}
	return fmt.Errorf("%w: %s not reachable within %s", ErrStartupTimeout, url, opts.Timeout)
}
