package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dsz/skyfleet/app"
	"github.com/dsz/skyfleet/utils"
)

const readinessTimeout = 2 * time.Second

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles GET /healthz. It always answers 200 while the process runs.
func HealthCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondOK(w, HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}, deps.Logger)
	}
}

// ReadinessCheck handles GET /readyz. The store must answer a ping.
func ReadinessCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := make(map[string]string)
		ready := true

		switch {
		case deps.Store == nil:
			checks["store"] = "not_initialized"
			ready = false
		default:
			if err := deps.Store.HealthCheck(ctx); err != nil {
				deps.Logger.Warn("store health check failed", zap.Error(err))
				checks["store"] = "unhealthy"
				ready = false
			} else {
				checks["store"] = "healthy"
			}
		}

		if deps.Config != nil && deps.Config.AuthConfigured() {
			checks["identity_provider"] = "configured"
		} else {
			checks["identity_provider"] = "not_configured"
		}

		response := HealthResponse{
			Status:    "ready",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    checks,
		}
		status := http.StatusOK
		if !ready {
			response.Status = "not_ready"
			status = http.StatusServiceUnavailable
		}

		if err := utils.WriteJSON(w, status, utils.SuccessResponse{Success: ready, Data: response}); err != nil {
			deps.Logger.Error("failed to write readiness response", zap.Error(err))
		}
	}
}
