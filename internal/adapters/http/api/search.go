// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/veridex/veridex/internal/domain/model"
)

const defaultSearchLimit = 20

// SearchDependencies defines the interface for cached-evaluation search.
type SearchDependencies interface {
	SearchModels(ctx context.Context, taskType string, minAccuracy float64, limit int) ([]model.CacheEntry, error)
}

// SearchHandler handles search requests.
type SearchHandler struct {
	deps     SearchDependencies
	maxLimit int
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(deps SearchDependencies, maxLimit int) *SearchHandler {
	if maxLimit <= 0 {
		maxLimit = defaultSearchLimit
	}
	return &SearchHandler{deps: deps, maxLimit: maxLimit}
}

// HandleSearch handles GET /search?task=X&min_accuracy=F&limit=N requests
// over live cached evaluations.
func (h *SearchHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	taskType := strings.TrimSpace(r.URL.Query().Get("task"))
	if taskType == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrMissingTaskType)
		return
	}

	minAccuracy := 0.0
	if raw := r.URL.Query().Get("min_accuracy"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			writeError(w, http.StatusBadRequest, "bad_request", ErrInvalidAccuracy)
			return
		}
		minAccuracy = parsed
	}

	limit := defaultSearchLimit
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

	entries, err := h.deps.SearchModels(r.Context(), taskType, minAccuracy, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"task":         taskType,
		"min_accuracy": minAccuracy,
		"count":        len(entries),
		"entries":      entries,
	})
}
