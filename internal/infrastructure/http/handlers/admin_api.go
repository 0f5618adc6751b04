package handlers

import (
	"net/http"

	appanalytics "github.com/rekomendr/rekomendr/internal/application/analytics"
	"go.uber.org/zap"
)

// AdminAPIHandlers serves the minimal admin dashboard reads.
type AdminAPIHandlers struct {
	analytics *appanalytics.Service
	logger    *zap.Logger
}

// NewAdminAPIHandlers creates a new admin API handlers instance
func NewAdminAPIHandlers(service *appanalytics.Service, logger *zap.Logger) *AdminAPIHandlers {
	return &AdminAPIHandlers{analytics: service, logger: logger}
}

// Stats handles GET /api/admin/stats: per-day searches/votes over the
// dashboard window, newest first, plus totals.
func (h *AdminAPIHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.analytics.Stats(r.Context())
	if err != nil {
		h.logger.Error("admin stats query failed", zap.Error(err))
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":     true,
		"totals": stats.Totals,
		"days":   stats.Days,
	})
}

// Recent handles GET /api/admin/recent: merged newest-first searches and
// votes.
func (h *AdminAPIHandlers) Recent(w http.ResponseWriter, r *http.Request) {
	rows, err := h.analytics.Recent(r.Context(), 20)
	if err != nil {
		h.logger.Error("admin recent query failed", zap.Error(err))
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "rows": rows})
}

// UsageList handles GET /api/usage: the newest usage rows.
func (h *AdminAPIHandlers) UsageList(w http.ResponseWriter, r *http.Request) {
	rows, err := h.analytics.LatestUsage(r.Context(), 10)
	if err != nil {
		h.logger.Error("usage list query failed", zap.Error(err))
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "rows": rows})
}
