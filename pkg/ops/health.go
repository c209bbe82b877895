package ops

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const checkTimeout = 5 * time.Second

// Health statuses reported by the probes.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// CheckFunc validates one dependency of the cache (remote tier
// connectivity, durable tier writability).
type CheckFunc func(ctx context.Context) error

// Checks maps dependency names to their checks.
type Checks map[string]CheckFunc

// healthResponse is the readiness probe body.
type healthResponse struct {
	Checks map[string]checkResult `json:"checks,omitempty"`
	Status string                 `json:"status"`
}

type checkResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// live always answers OK: the process is up.
func (h *handlers) live(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: StatusHealthy})
}

// ready runs the registered dependency checks in parallel and answers 503
// when any fails. A cache with no registered checks is always ready.
func (h *handlers) ready(checks Checks) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := h.runChecks(r.Context(), checks)

		status := http.StatusOK
		if resp.Status == StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}

func (h *handlers) runChecks(ctx context.Context, checks Checks) healthResponse {
	if len(checks) == 0 {
		return healthResponse{Status: StatusHealthy}
	}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]checkResult, len(checks))
		failed  bool
	)
	for name, check := range checks {
		wg.Add(1)
		go func(name string, check CheckFunc) {
			defer wg.Done()

			result := checkResult{Status: StatusHealthy}
			if err := check(ctx); err != nil {
				result = checkResult{Status: StatusUnhealthy, Error: err.Error()}
				h.log.WarnContext(ctx, "readiness check failed",
					slog.String("check", name), slog.String("error", err.Error()))
			}

			mu.Lock()
			results[name] = result
			failed = failed || result.Status == StatusUnhealthy
			mu.Unlock()
		}(name, check)
	}
	wg.Wait()

	status := StatusHealthy
	if failed {
		status = StatusUnhealthy
	}
	return healthResponse{Status: status, Checks: results}
}
