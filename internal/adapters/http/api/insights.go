// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/veridex/veridex/internal/domain/model"
)

const defaultHistoryLimit = 10

// InsightDependencies defines the interface for insight reads.
type InsightDependencies interface {
	LatestInsight(ctx context.Context, subject string) (model.TrustInsight, error)
	InsightHistory(ctx context.Context, subject string, limit int) ([]model.TrustInsight, error)
}

// InsightsHandler handles insight read requests.
type InsightsHandler struct {
	deps     InsightDependencies
	maxLimit int
}

// NewInsightsHandler creates a new insights handler.
func NewInsightsHandler(deps InsightDependencies, maxLimit int) *InsightsHandler {
	if maxLimit <= 0 {
		maxLimit = defaultHistoryLimit
	}
	return &InsightsHandler{deps: deps, maxLimit: maxLimit}
}

// HandleInsights handles GET /insights/{subject} and
// GET /insights/{subject}/history. Subjects contain a slash
// (owner/model), so everything up to an optional trailing /history
// segment is the subject.
func (h *InsightsHandler) HandleInsights(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	subject := strings.TrimPrefix(r.URL.Path, "/insights/")
	wantHistory := false
	if trimmed, ok := strings.CutSuffix(subject, "/history"); ok {
		subject = trimmed
		wantHistory = true
	}
	if subject == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrMissingSubject)
		return
	}

	if wantHistory {
		h.serveHistory(w, r, subject)
		return
	}

	insight, err := h.deps.LatestInsight(r.Context(), subject)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, insight)
}

func (h *InsightsHandler) serveHistory(w http.ResponseWriter, r *http.Request, subject string) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "bad_request", ErrInvalidLimit)
			return
		}
		limit = parsed
	}
	if limit > h.maxLimit {
		limit = h.maxLimit
	}

	history, err := h.deps.InsightHistory(r.Context(), subject, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"subject":  subject,
		"insights": history,
	})
}
