package handler

import (
	"context"
	"net/http"

	"github.com/srishtiii28/alphascan/internal/api/response"
)

// Pinger is the readiness probe of the configured store backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheck returns a simple health check response
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{
		"status": "ok",
	})
}

// ReadyCheck returns readiness status including store connectivity
func ReadyCheck(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			response.Error(w, http.StatusServiceUnavailable, "store not ready")
			return
		}

		response.OK(w, map[string]string{
			"status": "ready",
		})
	}
}
