package api

import (
	"net/http"
	"time"

	"github.com/mycelian/mycelian-crisis/internal/api/respond"
)

// HealthReporter is the service health aggregate.
type HealthReporter interface {
	IsHealthy() bool
	Components() map[string]bool
}

// HealthHandler serves GET /api/health.
type HealthHandler struct {
	health HealthReporter
}

func NewHealthHandler(h HealthReporter) *HealthHandler { return &HealthHandler{health: h} }

// CheckHealth always answers 200; the body reports healthy or unhealthy.
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, _ *http.Request) {
	status := "unhealthy"
	if h.health.IsHealthy() {
		status = "healthy"
	}
	respond.WriteJSON(w, http.StatusOK, map[string]any{
		"status":     status,
		"components": h.health.Components(),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}
