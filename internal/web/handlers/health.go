package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const readinessTimeout = 2 * time.Second

// HealthResponse is the body of /healthz and /readyz
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// healthzHandler answers liveness checks; it never touches a dependency
func (h *Handler) healthzHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// readyzHandler checks every configured dependency in parallel and answers 503
// as soon as one of them fails
func (h *Handler) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	var (
		mu     sync.Mutex
		g      errgroup.Group
		checks = make(map[string]string)
		ready  = true
	)
	for name, check := range h.services.HealthChecks() {
		g.Go(func() error {
			state := "healthy"
			if err := check(ctx); err != nil {
				state = "unhealthy: " + err.Error()
				h.logger.Warn(ctx).Err(err).Str("dependency", name).Msg("Readiness check failed")
			}
			mu.Lock()
			defer mu.Unlock()
			checks[name] = state
			ready = ready && state == "healthy"
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // Checks report through the map

	resp := HealthResponse{Status: "ok", Checks: checks}
	status := http.StatusOK
	if !ready {
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
