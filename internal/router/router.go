// Package router wires the service's HTTP surface: the chi middleware
// chain and the routes the chat service exposes.
package router

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vtc-digital/rag-orchestrator/internal/handler"
	"github.com/vtc-digital/rag-orchestrator/internal/middleware"
	"github.com/vtc-digital/rag-orchestrator/internal/model"
	"github.com/vtc-digital/rag-orchestrator/internal/workflow"
)

// descriptorTimeout bounds the purely informational routes. /chat is
// excluded: it streams over SSE and manages its own per-request deadlines.
const descriptorTimeout = 5 * time.Second

// LivenessChecker reports whether the vector store is reachable.
type LivenessChecker interface {
	IsLive(ctx context.Context) bool
}

// ChatRunner is the workflow surface the /chat route dispatches to.
type ChatRunner interface {
	Run(ctx context.Context, question string, history []model.ConversationTurn) (model.Answer, error)
	RunStreaming(ctx context.Context, question string, history []model.ConversationTurn) (<-chan workflow.Event, error)
}

// Dependencies holds everything the router needs to build its handlers.
type Dependencies struct {
	Version     string
	FrontendURL string
	Store       LivenessChecker
	Workflow    ChatRunner
	Metrics     *middleware.Metrics
	MetricsReg  *prometheus.Registry
}

// New builds the chi router: recovery, security headers, CORS, request
// logging and Prometheus metrics on every route, then the service's four
// public routes plus /metrics.
func New(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(deps.FrontendURL))
	r.Use(middleware.Logging)
	r.Use(middleware.Monitoring(deps.Metrics))

	r.With(middleware.Timeout(descriptorTimeout)).Get("/", handler.Root(deps.Version))
	r.With(middleware.Timeout(descriptorTimeout)).Get("/health", handler.Health(deps.Store))
	r.With(middleware.Timeout(descriptorTimeout)).Get("/agents", handler.Agents())
	r.Post("/chat", handler.Chat(deps.Workflow, deps.Metrics))

	if deps.MetricsReg != nil {
		r.Get("/metrics", middleware.MetricsHandler(deps.MetricsReg).ServeHTTP)
	}

	return r
}
