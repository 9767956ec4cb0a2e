// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package observability provides Prometheus metrics and the HTTP endpoints
// for metrics and health checks.
package observability

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"
)

// ReadinessChecker returns nil when the service can serve traffic.
type ReadinessChecker func(ctx context.Context) error

// Probe statuses reported in the health check bodies.
const (
	StatusOK          = "ok"
	StatusUnavailable = "unavailable"
)

// ProbeResponse is the JSON body of the health checks. Code is the error
// code of a failed readiness check, when it has one.
type ProbeResponse struct {
	Status string `json:"status"`
	Code   string `json:"code,omitempty"`
}

// Server serves /metrics and the liveness and readiness probes on a
// listener separate from the public API.
type Server struct {
	addr       string
	gatherer   prometheus.Gatherer
	ready      ReadinessChecker
	logger     *slog.Logger
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for lifecycle and probe failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates an observability server listening on addr
// ("127.0.0.1:9100", or ":0" for an ephemeral port). A nil readiness checker
// is always ready.
func NewServer(addr string, gatherer prometheus.Gatherer, ready ReadinessChecker, opts ...Option) *Server {
	s := &Server{
		addr:     addr,
		gatherer: gatherer,
		ready:    ready,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the observability routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	r.Route("/healthz", func(r chi.Router) {
		r.Use(middleware.NoCache)
		r.Get("/liveness", s.handleLiveness)
		r.Get("/readiness", s.handleReadiness)
	})
	return r
}

// Start begins serving in the background. The returned channel receives a
// serve error, if any, and is closed when the server stops.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.With("addr", s.addr).Errorf("observability server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrapf(err, "listen")
	}
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func(srv *http.Server) {
		defer close(errCh)
		if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("observability server error", "error", serveErr)
			errCh <- serveErr
		}
	}(s.httpServer)

	s.logger.Info("observability server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts the server down. Stopping a server that is not
// running is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.running.Store(true)
		return oops.With("operation", "shutdown observability server").Wrap(err)
	}
	s.logger.Info("observability server stopped")
	return nil
}

// Addr returns the address the server is listening on, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeProbe(w, http.StatusOK, ProbeResponse{Status: StatusOK})
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			resp := ProbeResponse{Status: StatusUnavailable}
			if oopsErr, ok := oops.AsOops(err); ok {
				resp.Code, _ = oopsErr.Code().(string)
			}
			s.logger.WarnContext(r.Context(), "readiness check failed", "error", err, "code", resp.Code)
			writeProbe(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	writeProbe(w, http.StatusOK, ProbeResponse{Status: StatusOK})
}

func writeProbe(w http.ResponseWriter, status int, body ProbeResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // probe clients may disconnect
	json.NewEncoder(w).Encode(body)
}
