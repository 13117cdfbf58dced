package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"

	"github.com/protexis/ogx-gateway/internal/domain/queue"
)

// HealthResponse is the JSON response from the /health endpoint.
type HealthResponse struct {
	Status  string            `json:"status"`            // "healthy" or "unhealthy"
	Checks  map[string]string `json:"checks"`            // Component check results
	Version string            `json:"version,omitempty"` // Optional version info
}

// HealthChecker verifies component health.
type HealthChecker struct {
	store   queue.Store
	version string
}

// NewHealthChecker creates a HealthChecker. Pass nil for components
// that aren't available.
func NewHealthChecker(store queue.Store, version string) *HealthChecker {
	return &HealthChecker{
		store:   store,
		version: version,
	}
}

// Check performs health checks on all components.
func (h *HealthChecker) Check(r *http.Request) HealthResponse {
	checks := make(map[string]string)
	healthy := true

	// A cheap read proves the queue database is reachable.
	if h.store != nil {
		if _, err := h.store.DeadLetters(r.Context(), 1); err != nil {
			checks["queue"] = fmt.Sprintf("degraded: %v", err)
			healthy = false
		} else {
			checks["queue"] = "ok"
		}
	} else {
		checks["queue"] = "not configured"
	}

	checks["goroutines"] = fmt.Sprintf("%d", runtime.NumGoroutine())

	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	return HealthResponse{
		Status:  status,
		Checks:  checks,
		Version: h.version,
	}
}

// Handler returns an HTTP handler for the health endpoint.
func (h *HealthChecker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		health := h.Check(r)

		w.Header().Set("Content-Type", "application/json")
		if health.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		_ = json.NewEncoder(w).Encode(health)
	})
}

// healthHandler returns a minimal health handler for when no checker is
// configured.
func healthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
}
