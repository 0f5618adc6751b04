package handlers

import (
	"encoding/json"
	"net/http"

	appquota "github.com/rekomendr/rekomendr/internal/application/quota"
	"github.com/rekomendr/rekomendr/internal/domain/quota"
	"github.com/rekomendr/rekomendr/internal/infrastructure/http/middleware"
	"go.uber.org/zap"
)

// QuotaAPIHandlers serves the usage query and chain mutation endpoints.
type QuotaAPIHandlers struct {
	quota          *appquota.Service
	enableDevReset bool
	logger         *zap.Logger
}

// NewQuotaAPIHandlers creates a new quota API handlers instance
func NewQuotaAPIHandlers(quotaService *appquota.Service, enableDevReset bool, logger *zap.Logger) *QuotaAPIHandlers {
	return &QuotaAPIHandlers{quota: quotaService, enableDevReset: enableDevReset, logger: logger}
}

// quotaActionRequest is the POST /api/quota body.
type quotaActionRequest struct {
	Action   string `json:"action"`
	ChainID  string `json:"chainId"`
	Vertical string `json:"vertical"`
	Query    string `json:"query"`
	tierBeta
}

// GetUsage handles GET /api/quota. Tier and beta flags arrive as header
// hints on GET.
func (h *QuotaAPIHandlers) GetUsage(w http.ResponseWriter, r *http.Request) {
	clientID := middleware.GetClientID(r.Context())
	tier, flags := tierFromHeaders(r)

	usage, err := h.quota.Usage(clientID, tier, flags)
	if err != nil {
		h.logger.Error("usage read failed", zap.String("client_id", clientID), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "Usage unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":    true,
		"usage": usage,
		"tier":  tier,
		"beta":  flags,
	})
}

// PostAction handles POST /api/quota: end (the canonical idempotent count),
// begin, refine, and the dev-only reset.
func (h *QuotaAPIHandlers) PostAction(w http.ResponseWriter, r *http.Request) {
	var req quotaActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request")
		return
	}

	clientID := middleware.GetClientID(r.Context())
	tier := quota.ParseTier(req.Tier)

	switch req.Action {
	case "end":
		if req.ChainID == "" {
			writeError(w, http.StatusBadRequest, "Missing chainId")
			return
		}
		result, err := h.quota.EndChainAndCount(clientID, tier, req.Beta, req.ChainID)
		if err != nil {
			// Fail closed: a broken store must read as "not allowed".
			writeError(w, http.StatusServiceUnavailable, "Quota unavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "result": result})

	case "begin":
		result := h.quota.BeginChain(clientID, tier, req.Beta, req.Vertical, req.Query)
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "gate": result.Gate, "chain": result.Chain})

	case "refine":
		result := h.quota.RecordRefine(clientID)
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "chain": result.Chain, "reachedLimit": result.ReachedLimit})

	case "reset":
		if !h.enableDevReset {
			writeError(w, http.StatusBadRequest, "Unknown action")
			return
		}
		if err := h.quota.ResetToday(clientID); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Quota unavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})

	default:
		writeError(w, http.StatusBadRequest, "Unknown action")
	}
}
