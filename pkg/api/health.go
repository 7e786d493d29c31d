package api

import (
	"context"
	"net/http"
	"time"
)

// ReadinessProbe reports whether the permission engine can answer checks.
type ReadinessProbe interface {
	Ready(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	probe   ReadinessProbe
	timeout time.Duration
}

// NewHealthHandler creates a health handler. A nil probe makes readiness
// always fail.
func NewHealthHandler(probe ReadinessProbe) *HealthHandler {
	return &HealthHandler{probe: probe, timeout: 5 * time.Second}
}

// Liveness handles GET /health. It succeeds while the process can serve HTTP.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"service": "refperm",
	}))
}

// Readiness handles GET /health/ready. It returns 503 until the root project
// can be loaded through the project cache.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.probe == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("engine not initialized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	start := time.Now()
	if err := h.probe.Ready(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"latency": time.Since(start).String(),
	}))
}
