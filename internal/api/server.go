// Package api exposes the HTTP read surface of the catalog service.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Moufidzakaria/jumia-api-scraping/internal/cache"
	"github.com/Moufidzakaria/jumia-api-scraping/internal/catalog"
	"github.com/Moufidzakaria/jumia-api-scraping/internal/config"
	"github.com/Moufidzakaria/jumia-api-scraping/internal/metrics"
	"github.com/Moufidzakaria/jumia-api-scraping/internal/plan"
	"github.com/Moufidzakaria/jumia-api-scraping/internal/quota"
)

// Server wires HTTP handlers to the record store, cache, and quota gate.
type Server struct {
	router chi.Router
	store  catalog.RecordStore
	cache  *cache.Layer
	gate   *quota.Gate
	cfg    config.Config
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	store catalog.RecordStore,
	cacheLayer *cache.Layer,
	gate *quota.Gate,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:  store,
		cache:  cacheLayer,
		gate:   gate,
		cfg:    cfg,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(time.Duration(cfg.Server.TimeoutSeconds) * time.Second))
	r.Use(instrumentMiddleware)

	r.Get("/health", s.health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/records", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.admitMiddleware)
			r.Get("/", s.listRecords)
			r.Get("/categories", s.listCategories)
			r.Get("/price-range", s.recordsByPriceRange)
			r.Get("/search/{term}", s.searchRecords)
			r.Get("/{id}", s.getRecord)
		})
		r.With(s.adminMiddleware).Post("/", s.insertRecord)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ok"})
}

type tierKey struct{}
type requestIDKey struct{}

// tierFrom returns the tier the admit middleware resolved for this request.
func tierFrom(ctx context.Context) plan.Tier {
	if t, ok := ctx.Value(tierKey{}).(plan.Tier); ok {
		return t
	}
	return plan.TierBasic
}

// admitMiddleware authenticates the API credential and charges the request
// against its plan ceiling before any handler work happens.
func (s *Server) admitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		credential := r.Header.Get("X-API-Key")
		if credential == "" {
			credential = r.URL.Query().Get("api_key")
		}
		tier, err := s.gate.Admit(r.Context(), credential)
		if err != nil {
			s.writeErrorFor(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), tierKey{}, tier)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// adminMiddleware guards the write path with the operator key. The quota
// gate does not apply here.
func (s *Server) adminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Auth.AdminKey == "" || r.Header.Get("X-Admin-Key") != s.cfg.Auth.AdminKey {
			writeError(s.logger, w, http.StatusForbidden, "forbidden", "admin credentials required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("panic", rec))
				writeError(s.logger, w, http.StatusInternalServerError, "internal", "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// timeoutBody is the pre-serialized error object TimeoutHandler writes, so
// timed-out requests fail with the same structured shape as every other
// error response.
const timeoutBody = `{"error":{"kind":"timeout","message":"request timed out"}}`

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, timeoutBody)
	}
}

func instrumentMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		metrics.ObserveAPIRequest(r.Method, route, ww.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
