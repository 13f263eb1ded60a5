// Package web provides the HTTP server for the B+ tree visualizer.
//
// EDUCATIONAL NOTES:
// ------------------
// This package sets up an HTTP server using the chi router, which is a
// lightweight, idiomatic Go router. Key concepts:
//
// 1. Middleware: Functions that wrap handlers to add cross-cutting concerns
//    like logging, metrics, recovery from panics, and request timeouts.
//
// 2. Graceful shutdown: When the context passed to Run is canceled, the
//    server stops accepting new connections but finishes in-flight requests
//    before returning. Replay streams are told to stop at the same time.
//
// 3. Dependency injection: The session registry is passed into the server
//    so handlers can operate on trees.

package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cabewaldrop/bplusviz/internal/config"
	"github.com/cabewaldrop/bplusviz/internal/metrics"
	"github.com/cabewaldrop/bplusviz/internal/session"
	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Options configures a Server. Zero values fall back to defaults.
type Options struct {
	Config   config.Config
	Registry *session.Registry
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger
}

// Server represents the HTTP server.
type Server struct {
	router   *chi.Mux
	cfg      config.Config
	registry *session.Registry
	metrics  *metrics.Metrics
	log      zerolog.Logger

	// streams is canceled on shutdown to end replay websockets.
	streams     context.Context
	stopStreams context.CancelFunc
}

// NewServer creates a new HTTP server.
func NewServer(opts Options) *Server {
	cfg := opts.Config
	if cfg.Server.Port == 0 && cfg.Tree.Order == 0 {
		cfg = config.Default()
	}
	if opts.Registry == nil {
		opts.Registry = session.NewRegistry(
			session.WithLogger(opts.Logger),
			session.WithMaxHistory(cfg.History.MaxEntries),
		)
	}

	r := chi.NewRouter()

	// Middleware stack
	// RequestID: Adds a unique ID to each request for tracing
	r.Use(middleware.RequestID)
	// RealIP: Extracts the real client IP from X-Forwarded-For headers
	r.Use(middleware.RealIP)
	// RequestLogger: Logs each request and feeds the HTTP metrics
	r.Use(RequestLogger(opts.Logger, opts.Metrics))
	// Recoverer: Catches panics in handlers, logs stack trace, returns 500
	r.Use(middleware.Recoverer)

	s := &Server{
		router:   r,
		cfg:      cfg,
		registry: opts.Registry,
		metrics:  opts.Metrics,
		log:      opts.Logger,
	}
	s.streams, s.stopStreams = context.WithCancel(context.Background())

	s.routes()
	return s
}

// routes sets up all HTTP routes for the server.
func (s *Server) routes() {
	timeout := middleware.Timeout(s.cfg.Server.WriteTimeout)

	s.router.Get("/health", s.handleHealth)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}

	// Static file serving (JS, CSS)
	s.staticRoutes()

	s.router.Group(func(r chi.Router) {
		r.Use(timeout)
		r.Get("/", s.handleIndex)
		r.Get("/trees/{id}", s.handleTreePage)
	})

	s.router.Route("/api/trees", func(r chi.Router) {
		r.Use(WithRegistry(s.registry))
		r.Use(RequireRegistry)

		r.With(timeout).Get("/", s.handleListTrees)
		r.With(timeout).Post("/", s.handleCreateTree)

		r.Route("/{id}", func(r chi.Router) {
			r.Use(SessionCtx)

			// The replay stream outlives any request timeout.
			r.Get("/replay", s.handleReplay)

			r.Group(func(r chi.Router) {
				r.Use(timeout)
				r.Get("/", s.handleGetTree)
				r.Delete("/", s.handleDeleteTree)
				r.Post("/insert", s.handleInsert)
				r.Post("/delete", s.handleDelete)
				r.Get("/find", s.handleFind)
				r.Post("/clear", s.handleClear)
				r.Post("/script", s.handleScript)
				r.Get("/history", s.handleHistory)
				r.Get("/history/{entry}/trace", s.handleTrace)
			})
		})
	})
}

// Router returns the chi router for testing purposes.
func (s *Server) Router() http.Handler {
	return s.router
}

// Registry returns the session registry.
func (s *Server) Registry() *session.Registry {
	return s.registry
}

// Run starts the HTTP server and blocks until ctx is canceled or the listener
// fails, then shuts down gracefully within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	srv.RegisterOnShutdown(s.stopStreams)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info().Int("port", s.cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server error")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown error")
		}
		s.log.Info().Msg("server stopped")
		return nil
	})
	return g.Wait()
}
