// Package server exposes the plugin-management HTTP surface under
// /api/v4/g4/plugins: manifest listing and lookup, plugin invocation, plus
// the ambient health, metrics, and invocation-history endpoints.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/g4-api/g4-plugins-go/pkg/dispatch"
	"github.com/g4-api/g4-plugins-go/pkg/history"
	"github.com/g4-api/g4-plugins-go/pkg/logging"
	"github.com/g4-api/g4-plugins-go/pkg/registry"
	"github.com/g4-api/g4-plugins-go/pkg/session"
	"github.com/g4-api/g4-plugins-go/pkg/types"
)

// BasePath is the root of the plugin-management surface.
const BasePath = "/api/v4/g4/plugins"

// SessionMounter attaches to the browser behind a driver URL and binds it
// to a session identity.
type SessionMounter interface {
	Mount(ctx context.Context, driverURL, sessionID string) (*session.Context, error)
}

// HistoryReader serves the recent-invocations endpoint.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Record, error)
}

// Server wires the registry, dispatcher, and mount layer behind the HTTP
// surface.
type Server struct {
	reg          *registry.Registry
	dispatcher   *dispatch.Dispatcher
	mounter      SessionMounter
	history      HistoryReader
	gatherer     prometheus.Gatherer
	logger       *slog.Logger
	historyLimit int
}

// Option configures a Server.
type Option func(*Server)

// WithHistory enables the recent-invocations endpoint.
func WithHistory(reader HistoryReader, limit int) Option {
	return func(s *Server) {
		s.history = reader
		if limit > 0 {
			s.historyLimit = limit
		}
	}
}

// WithMetricsGatherer enables the Prometheus /metrics endpoint.
func WithMetricsGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithLogger overrides the server's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// New creates a Server.
func New(reg *registry.Registry, dispatcher *dispatch.Dispatcher, mounter SessionMounter, opts ...Option) *Server {
	s := &Server{
		reg:          reg,
		dispatcher:   dispatcher,
		mounter:      mounter,
		logger:       slog.Default(),
		historyLimit: 50,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the routing table. Route patterns use the net/http method
// and wildcard syntax; the literal segments (type/, invocations) take
// precedence over the {plugin_name} wildcard.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+BasePath, s.handleListManifests)
	mux.HandleFunc("GET "+BasePath+"/{$}", s.handleListManifests)
	mux.HandleFunc("GET "+BasePath+"/type/{plugin_type}/key/{plugin_name}", s.handleGetByTypeAndKey)
	mux.HandleFunc("GET "+BasePath+"/invocations", s.handleInvocations)
	mux.HandleFunc("GET "+BasePath+"/{plugin_name}", s.handleGetByName)
	mux.HandleFunc("POST "+BasePath+"/{plugin_type}/invoke", s.handleInvoke)

	mux.HandleFunc("GET /health", s.handleHealth)
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	return s.withMiddleware(mux)
}

// withMiddleware wraps the mux with request logging and the last-resort
// panic boundary that renders an ErrorModel envelope.
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("request handler panicked",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Any("panic", rec),
				)
				writeErrorModel(w, r, http.StatusInternalServerError,
					&types.ValidationError{Field: "error", Message: "internal server error"})
			}
		}()

		logger := s.logger.With(
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		logger.Debug("request received")
		next.ServeHTTP(w, r.WithContext(logging.WithContext(r.Context(), logger)))
	})
}
