// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/veridex/veridex/internal/domain/model"
)

const defaultTopLimit = 10

// TopDependencies defines the interface for the trust ranking read.
type TopDependencies interface {
	TopSubjects(ctx context.Context, taskType string, limit int) ([]model.CacheEntry, error)
}

// TopHandler handles trust ranking requests.
type TopHandler struct {
	deps     TopDependencies
	maxLimit int
}

// NewTopHandler creates a new top handler.
func NewTopHandler(deps TopDependencies, maxLimit int) *TopHandler {
	if maxLimit <= 0 {
		maxLimit = defaultTopLimit
	}
	return &TopHandler{deps: deps, maxLimit: maxLimit}
}

// HandleTop handles GET /top?task=X&limit=N requests, serving the
// highest-trust subjects with a live cached evaluation. The task filter is
// optional.
func (h *TopHandler) HandleTop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	taskType := strings.TrimSpace(r.URL.Query().Get("task"))
	limit := defaultTopLimit
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

	entries, err := h.deps.TopSubjects(r.Context(), taskType, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(entries),
		"entries": entries,
	})
}
