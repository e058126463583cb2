package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// readyCheckTimeout bounds each backend ping during readiness checks.
const readyCheckTimeout = 5 * time.Second

// HealthChecker is an interface for services that can be health-checked
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports liveness and backend readiness. Checkers may be nil:
// in standalone mode the service is ready with no backends at all.
type HealthHandler struct {
	checkers map[string]HealthChecker
	version  string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(dbClient, redisClient HealthChecker, version string) *HealthHandler {
	checkers := make(map[string]HealthChecker)
	if dbClient != nil {
		checkers["database"] = dbClient
	}
	if redisClient != nil {
		checkers["redis"] = redisClient
	}
	return &HealthHandler{
		checkers: checkers,
		version:  version,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services,omitempty"`
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	writeJSON(w, http.StatusOK, response)
}

// Ready handles GET /ready. Pings every wired backend; any failure reports
// 503 with the per-service detail.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
	defer cancel()

	services := make(map[string]string, len(h.checkers))
	allHealthy := true

	for name, checker := range h.checkers {
		if err := checker.Ping(ctx); err != nil {
			services[name] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			services[name] = "healthy"
		}
	}

	response := HealthResponse{
		Version:   h.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  services,
	}

	if allHealthy {
		response.Status = "ready"
		writeJSON(w, http.StatusOK, response)
	} else {
		response.Status = "not ready"
		writeJSON(w, http.StatusServiceUnavailable, response)
	}
}

// Live handles GET /live
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
}
