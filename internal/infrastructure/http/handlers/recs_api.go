package handlers

import (
	"encoding/json"
	"net/http"

	appquota "github.com/rekomendr/rekomendr/internal/application/quota"
	"github.com/rekomendr/rekomendr/internal/application/recommend"
	"github.com/rekomendr/rekomendr/internal/domain/quota"
	"github.com/rekomendr/rekomendr/internal/infrastructure/http/middleware"
	"github.com/rekomendr/rekomendr/internal/infrastructure/monitoring"
	"github.com/rekomendr/rekomendr/internal/ports/outbound"
	"go.uber.org/zap"
)

// RecsAPIHandlers serves recommendation fetches and nudges.
type RecsAPIHandlers struct {
	recs    *recommend.Service
	quota   *appquota.Service
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewRecsAPIHandlers creates a new recommendations API handlers instance
func NewRecsAPIHandlers(
	recs *recommend.Service,
	quotaService *appquota.Service,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
) *RecsAPIHandlers {
	return &RecsAPIHandlers{recs: recs, quota: quotaService, metrics: metrics, logger: logger}
}

// recsRequest is the POST /api/recs body.
type recsRequest struct {
	Prompt   string   `json:"prompt"`
	Hints    []string `json:"hints,omitempty"`
	Category string   `json:"category,omitempty"`
	Refiners []string `json:"refiners,omitempty"`
	tierBeta
}

// GetRecommendations handles POST /api/recs. The model is only called when
// the soft wall allows; the chain protocol does the actual counting, so
// this check is a pure read.
func (h *RecsAPIHandlers) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	var req recsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request")
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "Missing prompt")
		return
	}

	clientID := middleware.GetClientID(r.Context())
	tier := quota.ParseTier(req.Tier)

	gate := h.quota.CanSearchNow(clientID, tier, req.Beta)
	if !gate.Allowed {
		// Soft wall: a denial is a normal response, not an HTTP error.
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok":    false,
			"error": "Daily search limit reached",
			"gate":  gate,
		})
		return
	}

	set, err := h.recs.Recommend(r.Context(), clientID, outbound.RecommendationRequest{
		Prompt:   req.Prompt,
		Hints:    req.Hints,
		Category: req.Category,
		Refiners: req.Refiners,
	})
	if h.metrics != nil {
		h.metrics.RecommendationAttempt(err != nil)
	}
	if err != nil {
		h.logger.Error("recommendation fetch failed",
			zap.String("client_id", clientID),
			zap.Error(err),
		)
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, set)
}

// nudgeRequest is the POST /api/nudge body.
type nudgeRequest struct {
	Vertical string   `json:"vertical"`
	History  []string `json:"history"`
}

// GetNudge handles POST /api/nudge.
func (h *RecsAPIHandlers) GetNudge(w http.ResponseWriter, r *http.Request) {
	var req nudgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request")
		return
	}
	if req.Vertical == "" {
		req.Vertical = "movies"
	}
	writeJSON(w, http.StatusOK, map[string]string{"nudge": recommend.Nudge(req.Vertical, req.History)})
}
