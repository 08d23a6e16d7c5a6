package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/autostack/gateway/internal/api/middleware"
	"github.com/autostack/gateway/internal/api/types"
	appErr "github.com/autostack/gateway/pkg/errors"
)

// Pinger reports whether a dependency is reachable.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]Pinger
}

// NewHealthHandler returns a handler whose readiness probe runs every check.
func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeData(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	results := make(map[string]string, len(h.checks))
	ready := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			ready = false
			continue
		}
		results[name] = "ok"
	}
	if !ready {
		writeJSON(w, http.StatusServiceUnavailable, types.APIResponse{
			Success: false,
			Data:    results,
			Error:   &types.APIError{Code: string(appErr.CodeUnavailable), Message: "not ready"},
			Meta:    &types.Meta{RequestID: middleware.GetRequestID(r.Context())},
		})
		return
	}
	writeData(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
}
