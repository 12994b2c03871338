// Package api serves the editor over HTTP: JSON commands against open
// sessions, a server-sent event stream per session, GraphQL reads, the audit
// trail, health and Prometheus metrics.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dd0wney/cluso-mapeditor/pkg/api/middleware"
	"github.com/dd0wney/cluso-mapeditor/pkg/audit"
	"github.com/dd0wney/cluso-mapeditor/pkg/graphql"
	"github.com/dd0wney/cluso-mapeditor/pkg/health"
	"github.com/dd0wney/cluso-mapeditor/pkg/logging"
	"github.com/dd0wney/cluso-mapeditor/pkg/metrics"
	"github.com/dd0wney/cluso-mapeditor/pkg/pubsub"
	"github.com/dd0wney/cluso-mapeditor/pkg/session"
	"github.com/dd0wney/cluso-mapeditor/pkg/store"
)

// Config tunes the HTTP surface
type Config struct {
	Version         string
	MaxBodyBytes    int64
	CORSOrigins     []string
	GraphQLMaxDepth int
	// MaxSessions degrades /health past this many open sessions; 0 disables
	MaxSessions int
}

// Deps are the services the API exposes. Sessions is required; Docs feeds
// the store health check; the rest disable their endpoints when nil.
type Deps struct {
	Sessions *session.Manager
	Docs     store.DocumentStore
	Events   *pubsub.PubSub
	Audit    *audit.AuditLogger
	Metrics  *metrics.Registry
	Logger   logging.Logger
}

// Server represents the HTTP API server
type Server struct {
	sessions       *session.Manager
	events         *pubsub.PubSub
	audit          *audit.AuditLogger
	metrics        *metrics.Registry
	healthChecker  *health.HealthChecker
	graphqlHandler *graphql.GraphQLHandler
	logger         logging.Logger
	cfg            Config
}

// NewServer wires the handlers. The GraphQL schema is generated here so a
// broken schema fails startup rather than the first query.
func NewServer(deps Deps, cfg Config) (*Server, error) {
	if deps.Sessions == nil {
		return nil, fmt.Errorf("api: session manager is required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}

	schema, err := graphql.GenerateSchema(deps.Sessions)
	if err != nil {
		return nil, fmt.Errorf("failed to generate GraphQL schema: %w", err)
	}

	s := &Server{
		sessions:       deps.Sessions,
		events:         deps.Events,
		audit:          deps.Audit,
		metrics:        deps.Metrics,
		healthChecker:  health.NewHealthChecker(cfg.Version),
		graphqlHandler: graphql.NewGraphQLHandler(schema, deps.Logger).SetMaxDepth(cfg.GraphQLMaxDepth),
		logger:         deps.Logger.With(logging.Component("api")),
		cfg:            cfg,
	}

	s.healthChecker.RegisterCheck("sessions", health.SessionCheck(deps.Sessions.Count, cfg.MaxSessions))
	s.healthChecker.RegisterCheck("memory", health.MemoryCheck(health.RuntimeMemory))
	if deps.Docs != nil {
		docs := deps.Docs
		storeCheck := health.StoreCheck(docs.Backend(), func(ctx context.Context) error {
			return store.Ping(ctx, docs)
		})
		s.healthChecker.RegisterCheck("store", storeCheck)
		s.healthChecker.RegisterReadinessCheck("store", storeCheck)
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.healthChecker.HTTPHandler())
	mux.HandleFunc("GET /ready", s.healthChecker.ReadinessHandler())
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	mux.Handle("POST /graphql", s.graphqlHandler)
	mux.Handle("GET /graphql", s.graphqlHandler)
	mux.HandleFunc("GET /catalog", s.handleCatalog)

	mux.HandleFunc("GET /sessions", s.handleListSessions)
	mux.HandleFunc("POST /sessions", s.handleOpenSession)
	mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /sessions/{id}", s.handleCloseSession)
	mux.HandleFunc("POST /sessions/{id}/save", s.handleSaveSession)
	mux.HandleFunc("GET /sessions/{id}/payload", s.handlePayload)

	mux.HandleFunc("POST /sessions/{id}/assets", s.handleAddAsset)
	mux.HandleFunc("DELETE /sessions/{id}/assets/{asset}", s.handleRemoveAsset)
	mux.HandleFunc("GET /sessions/{id}/assets/{asset}/ports", s.handleGetPorts)
	mux.HandleFunc("PUT /sessions/{id}/assets/{asset}/point", s.handleUpdatePoint)
	mux.HandleFunc("PUT /sessions/{id}/assets/{asset}/line", s.handleUpdateLine)
	mux.HandleFunc("POST /sessions/{id}/connections", s.handleConnect)

	if s.events != nil {
		mux.HandleFunc("GET /sessions/{id}/events", s.handleEvents)
	}
	if s.audit != nil {
		mux.HandleFunc("GET /audit", s.handleAudit)
	}
}

// Handler returns the routed API behind its middleware chain. Metrics sits
// inside RequestID so it sees the request the mux annotates with its pattern.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.routes(mux)

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = s.cfg.CORSOrigins

	var recordMetrics middleware.Middleware
	if s.metrics != nil {
		recordMetrics = middleware.Metrics(s.metrics)
	}
	return middleware.Chain(mux,
		middleware.PanicRecovery(s.logger),
		middleware.RequestID(),
		middleware.Logging(s.logger),
		recordMetrics,
		middleware.CORS(cors),
		middleware.BodySizeLimit(s.cfg.MaxBodyBytes),
	)
}

// HTTPServer builds the listener configuration. WriteTimeout stays zero
// because event streams are long-lived.
func (s *Server) HTTPServer(addr string, readTimeout, idleTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readTimeout,
		ReadTimeout:       readTimeout,
		IdleTimeout:       idleTimeout,
	}
}
