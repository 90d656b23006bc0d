// Package api serves the port operations REST surface over gorilla/mux.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"portflow/docs/schema/openapi"
	"portflow/internal/assistant"
	"portflow/internal/core"
	"portflow/internal/export"
	"portflow/internal/identity"
	"portflow/internal/weather"
)

// MetricsPath serves the Prometheus exposition. /metrics belongs to the
// metrics table.
const MetricsPath = "/internal/metrics"

// DocumentPath serves the OpenAPI description.
const DocumentPath = "/openapi.yaml"

// WeatherSource returns current conditions at the port.
type WeatherSource interface {
	Current(ctx context.Context) (weather.Current, error)
}

// ChatAssistant answers operator chat conversations.
type ChatAssistant interface {
	Chat(ctx context.Context, messages []assistant.Message, model string) (assistant.Message, error)
}

// TrafficForecaster proxies the traffic prediction service.
type TrafficForecaster interface {
	Traffic(ctx context.Context, daysAhead int) (json.RawMessage, error)
}

// ExportQueue schedules and serves export artifacts.
type ExportQueue interface {
	Enqueue(ctx context.Context, req export.Request) (export.Record, error)
	Get(ctx context.Context, id string) (export.Record, error)
	Open(ctx context.Context, id string) (export.Record, io.ReadCloser, error)
}

// Authenticator checks login credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (identity.Account, error)
}

// Dependencies are the collaborators the handlers call. Only Service is
// required; routes whose collaborator is nil answer 503.
type Dependencies struct {
	Service     *core.Service
	Tokens      *identity.Tokens
	Accounts    Authenticator
	Weather     WeatherSource
	Assistant   ChatAssistant
	Predictions TrafficForecaster
	Exports     ExportQueue
	Logger      *zap.Logger
}

// Options tune the HTTP surface.
type Options struct {
	AllowedOrigins []string
	AuthRequired   bool
	// SlowRequest is the latency above which requests are logged at warn.
	SlowRequest time.Duration
	// Registry receives the HTTP collectors and backs MetricsPath. Nil
	// disables both.
	Registry *prometheus.Registry
}

// Server owns the router and the handler dependencies.
type Server struct {
	router  *mux.Router
	deps    Dependencies
	opts    Options
	logger  *zap.Logger
	metrics *httpMetrics
}

// NewServer builds the router and registers the HTTP collectors.
func NewServer(deps Dependencies, opts Options) (*Server, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.SlowRequest <= 0 {
		opts.SlowRequest = 500 * time.Millisecond
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	s := &Server{
		router: mux.NewRouter(),
		deps:   deps,
		opts:   opts,
		logger: logger.Named("http"),
	}
	if opts.Registry != nil {
		m, err := newHTTPMetrics(opts.Registry)
		if err != nil {
			return nil, err
		}
		s.metrics = m
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

// Handler returns the root handler: CORS and request logging around the
// router.
func (s *Server) Handler() http.Handler {
	return s.cors(s.logRequests(s.router))
}

func (s *Server) setupMiddleware() {
	s.router.Use(s.instrument)
	s.router.Use(s.authenticate)
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.opts.Registry != nil {
		s.router.Handle(MetricsPath, promhttp.HandlerFor(s.opts.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	s.router.HandleFunc(DocumentPath, handleDocument).Methods(http.MethodGet)
	s.router.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)

	s.setupResourceRoutes()
	s.setupViewRoutes()
	s.setupUserRoutes(s.router.PathPrefix("/users").Subrouter())
	s.setupUserRoutes(s.router.PathPrefix("/api/users").Subrouter())
	s.setupSimulationRoutes()
	s.setupPassthroughRoutes()
	s.setupExportRoutes()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := s.deps.Service.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func handleDocument(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openapi.Spec())
}
