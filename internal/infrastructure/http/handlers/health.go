package handlers

import (
	"net/http"

	"github.com/rekomendr/rekomendr/internal/infrastructure/config"
	"github.com/rekomendr/rekomendr/pkg/healthcheck"
)

// HealthHandlers serves the liveness and readiness probes.
type HealthHandlers struct {
	cfg    *config.Config
	health *healthcheck.Health
}

// NewHealthHandlers creates a new health handlers instance
func NewHealthHandlers(cfg *config.Config, health *healthcheck.Health) *HealthHandlers {
	return &HealthHandlers{cfg: cfg, health: health}
}

// Health handles GET /health. It reports which external collaborators are
// configured without leaking their values, plus live dependency probes.
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	probes := h.health.Check(r.Context())
	status := http.StatusOK
	if probes.Status == healthcheck.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]interface{}{
		"ok":          probes.Status != healthcheck.StatusUnhealthy,
		"status":      probes.Status,
		"version":     h.cfg.App.Version,
		"hasModelKey": h.cfg.AI.APIKey != "",
		"hasDatabase": h.cfg.Database.Database != "",
		"hasRedis":    h.cfg.Redis.Enable,
		"cap":         h.cfg.Quota.GlobalDailyCap,
		"checks":      probes.Checks,
	})
}

// Ready handles GET /health/ready for deployment gates.
func (h *HealthHandlers) Ready(w http.ResponseWriter, r *http.Request) {
	if !h.health.Ready(r.Context()) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"ready": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ready": true})
}
