// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/veridex/veridex/internal/adapters/repository"
	"github.com/veridex/veridex/internal/domain/model"
)

// Dependencies required by HTTP handlers. An interface bundle keeps the
// handler layer loosely coupled to the service implementation.
type Dependencies interface {
	// Evaluate runs a full evaluation for the subject right now, bypassing
	// the job queue.
	Evaluate(ctx context.Context, subject string) (model.TrustInsight, error)

	// Read operations over persisted results.
	LatestInsight(ctx context.Context, subject string) (model.TrustInsight, error)
	InsightHistory(ctx context.Context, subject string, limit int) ([]model.TrustInsight, error)
	TopSubjects(ctx context.Context, taskType string, limit int) ([]model.CacheEntry, error)
	SearchModels(ctx context.Context, taskType string, minAccuracy float64, limit int) ([]model.CacheEntry, error)

	// Status reports pipeline health for operators.
	Status(ctx context.Context) model.PipelineStatus
}

// Server wires HTTP routes for the evaluation API.
type Server struct {
	healthHandler   *HealthHandler
	evaluateHandler *EvaluateHandler
	insightsHandler *InsightsHandler
	topHandler      *TopHandler
	searchHandler   *SearchHandler
	statusHandler   *StatusHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, maxHistoryLimit, maxTopLimit int) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		evaluateHandler: NewEvaluateHandler(deps),
		insightsHandler: NewInsightsHandler(deps, maxHistoryLimit),
		topHandler:      NewTopHandler(deps, maxTopLimit),
		searchHandler:   NewSearchHandler(deps, maxTopLimit),
		statusHandler:   NewStatusHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/evaluate", MetricsMiddleware(s.evaluateHandler.HandleEvaluate, "evaluate"))
	mux.HandleFunc("/insights/", MetricsMiddleware(s.insightsHandler.HandleInsights, "insights"))
	mux.HandleFunc("/top", MetricsMiddleware(s.topHandler.HandleTop, "top"))
	mux.HandleFunc("/search", MetricsMiddleware(s.searchHandler.HandleSearch, "search"))
	mux.HandleFunc("/status", MetricsMiddleware(s.statusHandler.HandleStatus, "status"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// isNotFound translates upstream not-found errors to 404.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
