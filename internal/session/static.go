package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
)

// Static serves the artifact directory with an in-process file server on an
// ephemeral localhost port. Readiness is a poll against the served root.
func Static(ctx context.Context, dir string, opts Options) (*Session, error) {
	opts.applyDefaults()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	srv := &http.Server{Handler: http.FileServer(http.Dir(dir))}
	go func() {
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("static server", "err", err)
		}
	}()

	s := &Session{
		BaseURL: fmt.Sprintf("http://%s", l.Addr().String()),
		state:   StateStarting,
		stopFn:  srv.Close,
	}
	slog.Info("serving artifact", "dir", dir, "url", s.BaseURL)

	if err := waitHTTP(ctx, s.BaseURL+"/", opts); err != nil {
		s.setState(StateFailed)
		srv.Close()
		return nil, err
	}
	s.setState(StateReady)
	return s, nil
}
