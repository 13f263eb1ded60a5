// Package web - Registry and session middleware
//
// EDUCATIONAL NOTES:
// ------------------
// Middleware in Go HTTP servers wraps handlers to add cross-cutting concerns.
// Context-based dependency injection is a common pattern:
//
// 1. Outer middleware injects dependencies into request context
// 2. Handlers retrieve dependencies from context when needed
// 3. Inner middleware can require dependencies and fail fast if missing
//
// Here the outer layer injects the session registry, and the per-tree routes
// resolve {id} to a session once so every handler below can assume it exists.

package web

import (
	"context"
	"net/http"
	"time"

	"github.com/cabewaldrop/bplusviz/internal/metrics"
	"github.com/cabewaldrop/bplusviz/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	registryKey contextKey = "registry"
	sessionKey  contextKey = "session"
)

// WithRegistry returns middleware that injects the session registry into
// the request context. Handlers can retrieve it using GetRegistry.
//
// Usage:
//
//	router.Use(WithRegistry(reg))
//	router.Get("/trees", func(w http.ResponseWriter, r *http.Request) {
//	    reg := GetRegistry(r)
//	    // list sessions
//	})
func WithRegistry(reg *session.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), registryKey, reg)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetRegistry retrieves the registry from the request context.
// Returns nil if the registry was not set (middleware not applied).
func GetRegistry(r *http.Request) *session.Registry {
	reg, ok := r.Context().Value(registryKey).(*session.Registry)
	if !ok {
		return nil
	}
	return reg
}

// RequireRegistry returns middleware that ensures a registry is present
// in the request context. If not found, it returns 503 Service Unavailable.
func RequireRegistry(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRegistry(r) == nil {
			writeError(w, http.StatusServiceUnavailable, "tree registry not available", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SessionCtx resolves the {id} URL parameter to a session and stores it in
// the request context. Unknown ids get a 404.
func SessionCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := GetRegistry(r).Get(chi.URLParam(r, "id"))
		if err != nil {
			writeErr(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey, s)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetSession retrieves the session stored by SessionCtx.
func GetSession(r *http.Request) *session.Session {
	s, _ := r.Context().Value(sessionKey).(*session.Session)
	return s
}

// RequestLogger logs every request with zerolog and, when m is not nil,
// records it in the HTTP metrics under its route pattern.
func RequestLogger(log zerolog.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				took := time.Since(start)
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				route := r.URL.Path
				if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
					route = rctx.RoutePattern()
				}
				if m != nil {
					m.ObserveRequest(r.Method, route, status, took)
				}

				ev := log.Info()
				if status >= http.StatusInternalServerError {
					ev = log.Error()
				}
				ev.Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("route", route).
					Int("status", status).
					Int("bytes", ww.BytesWritten()).
					Dur("took", took).
					Str("request_id", middleware.GetReqID(r.Context())).
					Msg("request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
