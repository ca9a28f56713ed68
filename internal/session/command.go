package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"sync"
	"syscall"
	"time"
)

// urlPattern locates the served address in a dev server's output stream
// ("Local: http://localhost:5173/" and the like).
var urlPattern = regexp.MustCompile(`https?://[0-9A-Za-z.:\-]+[0-9A-Za-z/]`)

// CommandOptions configures a dev-server subprocess session.
type CommandOptions struct {
	Options

	// ReadyPattern is matched against the combined output stream; a match is
	// the ready signal. Empty means "any served URL appears".
	ReadyPattern string

	// URL, when set, is the known base address; readiness switches from
	// output scanning to HTTP polling against it.
	URL string
}

// ringBuffer keeps the tail of the subprocess's combined output for
// diagnostics and ready-signal scanning.
type ringBuffer struct {
	mu   sync.Mutex
	data []byte
	max  int
}

func newRingBuffer(max int) *ringBuffer {
	return &ringBuffer{max: max, data: make([]byte, 0, max)}
}

func (rb *ringBuffer) Write(p []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.data = append(rb.data, p...)
	if len(rb.data) > rb.max {
		rb.data = rb.data[len(rb.data)-rb.max:]
	}
	return len(p), nil
}

func (rb *ringBuffer) String() string {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return string(rb.data)
}

// Command starts the dev-server command line as an opaque subprocess and
// waits for its ready signal. The process runs in its own group so Stop can
// take down anything it spawned.
func Command(ctx context.Context, cmdline string, copts CommandOptions) (*Session, error) {
	copts.applyDefaults()

	cctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(cctx, "sh", "-c", cmdline)
	cmd.Env = os.Environ()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	logBuf := newRingBuffer(64 * 1024)
	cmd.Stdout = logBuf
	cmd.Stderr = logBuf

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start %q: %w", cmdline, err)
	}
	pid := cmd.Process.Pid
	slog.Info("dev server started", "cmd", cmdline, "pid", pid)

	// Reap the child whenever it exits.
	waitDone := make(chan error, 1)
	go func() { waitDone <- cmd.Wait() }()

	s := &Session{state: StateStarting}
	s.stopFn = func() error {
		_ = syscall.Kill(-pid, syscall.SIGTERM)
		select {
		case <-waitDone:
		case <-time.After(2 * time.Second):
			_ = syscall.Kill(-pid, syscall.SIGKILL)
			<-waitDone
		}
		cancel()
		slog.Info("dev server stopped", "pid", pid)
		return nil
	}

	fail := func(err error) (*Session, error) {
		s.setState(StateFailed)
		_ = s.Stop()
		return nil, err
	}

	if copts.URL != "" {
		s.BaseURL = copts.URL
		if err := waitHTTP(cctx, s.BaseURL, copts.Options); err != nil {
			return fail(err)
		}
		s.setState(StateReady)
		return s, nil
	}

	ready := urlPattern
	if copts.ReadyPattern != "" {
		re, err := regexp.Compile(copts.ReadyPattern)
		if err != nil {
			return fail(fmt.Errorf("ready pattern: %w", err))
		}
		ready = re
	}

	deadline := time.Now().Add(copts.Timeout)
	for time.Now().Before(deadline) {
		out := logBuf.String()
		if ready.MatchString(out) {
			url := urlPattern.FindString(out)
			if url == "" {
				return fail(fmt.Errorf("%w: ready signal seen but no served URL in output; pass the address explicitly", ErrStartupTimeout))
			}
			s.BaseURL = url
			s.setState(StateReady)
			slog.Info("dev server ready", "url", url)
			return s, nil
		}
		select {
		case err := <-waitDone:
			waitDone <- err // keep stopFn's receive alive
			return fail(fmt.Errorf("%w: dev server exited early: %v\n%s", ErrStartupTimeout, err, tail(logBuf.String(), 2048)))
		case <-cctx.Done():
			return fail(cctx.Err())
		case <-time.After(100 * time.Millisecond):
		}
	}
	return fail(fmt.Errorf("%w: no ready signal within %s\n%s", ErrStartupTimeout, copts.Timeout, tail(logBuf.String(), 2048)))
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
