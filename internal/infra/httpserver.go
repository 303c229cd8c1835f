package infra

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HTTPServer serves the API until its context ends, then drains open
// requests for up to the idle timeout.
type HTTPServer struct {
	server *http.Server
	grace  time.Duration
	logger zerolog.Logger
}

// NewHTTPServer builds the listener from cfg. Generation calls hold the
// request open, so the write timeout must cover a provider round trip.
func NewHTTPServer(cfg *Config, handler http.Handler, logger zerolog.Logger) *HTTPServer {
	errLog := logger.With().Str("component", "http_server").Logger()
	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		MaxHeaderBytes:    64 << 10,
		ErrorLog:          log.New(errLog, "", 0),
	}
	grace := cfg.HTTPIdleTimeout
	if grace <= 0 {
		grace = 15 * time.Second
	}
	return &HTTPServer{server: srv, grace: grace, logger: logger}
}

// Addr is the configured listen address.
func (s *HTTPServer) Addr() string {
	return s.server.Addr
}

// Run blocks until ctx is cancelled or the listener fails. A clean shutdown
// returns nil.
func (s *HTTPServer) Run(ctx context.Context) error {
	s.server.BaseContext = func(net.Listener) context.Context {
		// requests keep running through shutdown; Shutdown waits for them
		return context.WithoutCancel(ctx)
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Dur("grace", s.grace).Msg("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.grace)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
