package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/solatis/jsonforge/internal/core/api"
	"github.com/solatis/jsonforge/internal/core/auth"
	"github.com/solatis/jsonforge/internal/core/config"
	"github.com/solatis/jsonforge/internal/logging"
)

// Routes are the handlers behind the HTTP API. Runs and Metrics are
// optional: their routes are only mounted when set.
type Routes struct {
	Transform http.Handler
	Runs      *api.RunsHandler
	Metrics   http.Handler
}

// NewRouter builds the HTTP API:
//
//	GET  /healthz          liveness, unauthenticated
//	GET  /metrics          Prometheus scrape, unauthenticated
//	POST /v1/transform     transform the request body
//	GET  /v1/runs[/{id}]   run journal
func NewRouter(routes Routes, authenticator *auth.Authenticator, logger *slog.Logger) chi.Router {
	if logger == nil {
		logger = logging.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok\n"))
	})
	if routes.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", routes.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(authenticator.Middleware)
		r.Method(http.MethodPost, "/v1/transform", routes.Transform)
		if routes.Runs != nil {
			r.Route("/v1/runs", routes.Runs.Routes)
		}
	})
	return r
}

// requestLogger logs one line per request at debug level.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// HTTPServer manages HTTP server lifecycle.
type HTTPServer struct {
	server *http.Server
	config config.ServerConfig
	logger *slog.Logger
}

// NewHTTPServer wraps handler in an http.Server on the configured port.
// Request bodies get RequestTimeout to arrive.
func NewHTTPServer(cfg config.ServerConfig, handler http.Handler, logger *slog.Logger) (*HTTPServer, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &HTTPServer{
		server: &http.Server{
			Addr:              net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.HTTPPort)),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       cfg.RequestTimeout,
		},
		config: cfg,
		logger: logger,
	}, nil
}

// Addr is the configured listen address.
func (s *HTTPServer) Addr() string { return s.server.Addr }

// Start binds the configured address and serves until Shutdown.
func (s *HTTPServer) Start(_ context.Context) error {
	listener, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", s.server.Addr, err)
	}
	return s.Serve(listener)
}

// Serve serves on an existing listener. It returns nil after Shutdown.
func (s *HTTPServer) Serve(listener net.Listener) error {
	s.logger.Info("http server listening", "addr", listener.Addr().String())
	if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, closing remaining connections when
// ctx ends or the configured shutdown timeout passes.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}
	if err := s.server.Shutdown(ctx); err != nil {
		_ = s.server.Close()
		return fmt.Errorf("graceful shutdown interrupted, forced close: %w", err)
	}
	return nil
}
