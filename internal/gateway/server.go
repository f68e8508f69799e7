// Package gateway serves the bot's HTTP surface: health, Prometheus metrics
// and the overlay websocket.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/soyeahso/twitchbot/internal/config"
	"github.com/soyeahso/twitchbot/internal/logging"
	"github.com/soyeahso/twitchbot/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

// Server is the HTTP listener.
type Server struct {
	cfg     config.HTTPConfig
	log     *logging.Logger
	metrics *telemetry.Metrics
	overlay http.Handler
	status  StatusFunc

	startedAt time.Time

	mu         sync.Mutex
	httpServer *http.Server
	addr       string
}

// Option configures the server.
type Option func(*Server)

// WithMetrics serves m at /metrics and counts requests into it.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithOverlay serves the overlay websocket at /overlay.
func WithOverlay(h http.Handler) Option {
	return func(s *Server) { s.overlay = h }
}

// WithStatus adds bot state to /healthz.
func WithStatus(fn StatusFunc) Option {
	return func(s *Server) { s.status = fn }
}

// New creates a server for cfg.Listen.
func New(cfg config.HTTPConfig, log *logging.Logger, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg,
		log:       log.Sub("http"),
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+routeHealth, s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET "+routeMetrics, s.metrics.Handler())
	}
	if s.overlay != nil {
		mux.Handle("GET "+routeOverlay, s.overlay)
	}
	mux.HandleFunc("/", handleNotFound)
	return s.chain(mux)
}

// Start listens on the configured address and serves until ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Listen, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.mu.Lock()
	s.httpServer = srv
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	s.log.Info().Str("addr", s.Addr()).Msg("http server ready")

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}
