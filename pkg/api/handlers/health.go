package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/marmos91/fsbroker/pkg/backend"
)

// BrokerStatus is the view of the broker transport the API reports on.
type BrokerStatus interface {
	ActiveConnections() int32
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	fs        backend.FileSystem
	broker    BrokerStatus
	startedAt time.Time
}

// NewHealthHandler creates a health handler. fs and broker may be nil, in
// which case readiness reports unhealthy.
func NewHealthHandler(fs backend.FileSystem, broker BrokerStatus) *HealthHandler {
	return &HealthHandler{fs: fs, broker: broker, startedAt: time.Now()}
}

// Liveness handles GET /health. It succeeds whenever the HTTP server is
// responsive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.startedAt)
	writeJSON(w, http.StatusOK, healthyResponse(map[string]any{
		"service":    "fsbroker",
		"started_at": h.startedAt.UTC().Format(time.RFC3339),
		"uptime":     uptime.Round(time.Second).String(),
		"uptime_sec": int64(uptime.Seconds()),
	}))
}

// BackendHealth is the readiness payload.
type BackendHealth struct {
	Backend           string `json:"backend"`
	Latency           string `json:"latency,omitempty"`
	ActiveConnections int32  `json:"active_connections"`
}

// Readiness handles GET /health/ready. It probes the backend when the
// backend supports health checks and returns 503 if the probe fails.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.fs == nil || h.broker == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("broker not initialized"))
		return
	}

	status := BackendHealth{
		Backend:           h.fs.Name(),
		ActiveConnections: h.broker.ActiveConnections(),
	}

	if hc, ok := h.fs.(backend.HealthChecker); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		start := time.Now()
		err := hc.Healthcheck(ctx)
		status.Latency = time.Since(start).String()
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, unhealthyResponseWithData(err.Error(), status))
			return
		}
	}

	writeJSON(w, http.StatusOK, healthyResponse(status))
}
