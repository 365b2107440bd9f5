// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/veridex/veridex/internal/domain/model"
)

// EvaluateDependencies defines the interface for manual evaluations.
type EvaluateDependencies interface {
	Evaluate(ctx context.Context, subject string) (model.TrustInsight, error)
}

// EvaluateHandler handles manual evaluation requests.
type EvaluateHandler struct {
	deps EvaluateDependencies
}

// NewEvaluateHandler creates a new evaluate handler.
func NewEvaluateHandler(deps EvaluateDependencies) *EvaluateHandler {
	return &EvaluateHandler{deps: deps}
}

// evaluateRequest mirrors the body of POST /evaluate.
type evaluateRequest struct {
	Subject string `json:"subject"`
}

type evaluateResponse struct {
	Success   bool               `json:"success"`
	InsightID string             `json:"insight_id"`
	Insight   model.TrustInsight `json:"insight"`
}

// HandleEvaluate handles POST /evaluate requests. The evaluation runs
// synchronously and the fresh insight is returned.
func (h *EvaluateHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	req.Subject = strings.TrimSpace(req.Subject)
	if req.Subject == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrMissingSubject)
		return
	}

	insight, err := h.deps.Evaluate(r.Context(), req.Subject)
	if err != nil {
		writeError(w, http.StatusBadGateway, "evaluation_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, evaluateResponse{Success: true, InsightID: insight.ID, Insight: insight})
}
