package restapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"trajet.transportbi.org/internal/logging"
)

// healthPingTimeout bounds the backend check so a slow backend cannot hang
// the probe.
const healthPingTimeout = 3 * time.Second

// HealthResponse represents the JSON response from the health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// healthHandler verifies that the backend is configured and answers.
func (api *RestAPI) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if api.Application == nil || api.Backend == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(HealthResponse{
			Status: "unavailable",
			Detail: "backend not initialized",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()
	if err := api.Backend.Ping(ctx); err != nil {
		logging.LogError(api.Logger, "backend ping failed", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(HealthResponse{
			Status:  "unavailable",
			Backend: string(api.Backend.Kind),
			Detail:  "backend connection failed",
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(HealthResponse{
		Status:  "ok",
		Backend: string(api.Backend.Kind),
	})
}
