package api

import (
	"context"
	"net/http"
	"time"
)

// HealthResponse represents the JSON response from the health check endpoint.
type HealthResponse struct {
	OK        bool   `json:"ok"`
	App       string `json:"app"`
	Qdrant    string `json:"qdrant"`
	Timestamp string `json:"timestamp"`
}

// HealthChecker interface defines the health check dependency.
// The storage layer implements this via its Health() method.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// NewHealthHandler creates an HTTP handler for the /healthz endpoint.
// It checks Qdrant connectivity and returns 503 when it is unreachable.
// A nil store reports "disabled" and stays healthy.
func NewHealthHandler(app string, store HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := HealthResponse{
			OK:        true,
			App:       app,
			Qdrant:    "disabled",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}

		if store == nil {
			writeJSON(w, http.StatusOK, response)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if err := store.Health(ctx); err != nil {
			response.OK = false
			response.Qdrant = "disconnected"
			writeJSON(w, http.StatusServiceUnavailable, response)
			return
		}

		response.Qdrant = "connected"
		writeJSON(w, http.StatusOK, response)
	}
}
