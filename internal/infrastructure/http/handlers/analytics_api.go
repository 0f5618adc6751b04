package handlers

import (
	"encoding/json"
	"net/http"

	appanalytics "github.com/rekomendr/rekomendr/internal/application/analytics"
	"github.com/rekomendr/rekomendr/internal/domain/analytics"
	"github.com/rekomendr/rekomendr/internal/infrastructure/http/middleware"
	"go.uber.org/zap"
)

// AnalyticsAPIHandlers serves the fire-and-forget event sinks: track,
// feedback, survey.
type AnalyticsAPIHandlers struct {
	analytics *appanalytics.Service
	logger    *zap.Logger
}

// NewAnalyticsAPIHandlers creates a new analytics API handlers instance
func NewAnalyticsAPIHandlers(service *appanalytics.Service, logger *zap.Logger) *AnalyticsAPIHandlers {
	return &AnalyticsAPIHandlers{analytics: service, logger: logger}
}

// trackRequest is the POST /api/track body.
type trackRequest struct {
	Event   string                 `json:"event"`
	Prompt  string                 `json:"prompt"`
	Details map[string]interface{} `json:"details"`
}

// Track handles POST /api/track.
func (h *AnalyticsAPIHandlers) Track(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request")
		return
	}

	clientID := middleware.GetClientID(r.Context())
	if err := h.analytics.Track(r.Context(), clientID, req.Event, req.Prompt); err != nil {
		h.logger.Warn("track insert failed", zap.String("event", req.Event), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// feedbackRequest is the POST /api/feedback body.
type feedbackRequest struct {
	Vote        string `json:"vote"`
	ItemID      string `json:"itemId"`
	ItemTitle   string `json:"itemTitle"`
	ItemSummary string `json:"itemSummary"`
	Prompt      string `json:"prompt"`
	Tier        string `json:"tier"`
}

// Feedback handles POST /api/feedback.
func (h *AnalyticsAPIHandlers) Feedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request")
		return
	}

	fb := &analytics.Feedback{
		Vote:        analytics.Vote(req.Vote),
		ItemID:      req.ItemID,
		ItemTitle:   req.ItemTitle,
		ItemSummary: req.ItemSummary,
		Prompt:      req.Prompt,
		Tier:        req.Tier,
	}
	if err := h.analytics.RecordFeedback(r.Context(), fb); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// surveyRequest is the POST /api/survey body.
type surveyRequest struct {
	Answers map[string]interface{} `json:"answers"`
}

// Survey handles POST /api/survey.
func (h *AnalyticsAPIHandlers) Survey(w http.ResponseWriter, r *http.Request) {
	var req surveyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request")
		return
	}

	if err := h.analytics.RecordSurvey(r.Context(), req.Answers); err != nil {
		h.logger.Warn("survey insert failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
