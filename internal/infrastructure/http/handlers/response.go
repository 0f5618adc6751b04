// Package handlers provides the JSON API handlers.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rekomendr/rekomendr/internal/domain/quota"
	apperrors "github.com/rekomendr/rekomendr/pkg/errors"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{"ok": false, "error": message})
}

// writeAppError maps an AppError to its status code and JSON body.
func writeAppError(w http.ResponseWriter, err error) {
	if appErr, ok := err.(*apperrors.AppError); ok {
		writeJSON(w, appErr.StatusCode(), map[string]interface{}{
			"ok":    false,
			"error": appErr.Message,
			"code":  appErr.Code,
		})
		return
	}
	writeError(w, http.StatusInternalServerError, "Server error")
}

// tierBeta is the tier/flags pair accepted in POST bodies.
type tierBeta struct {
	Tier string          `json:"tier"`
	Beta quota.BetaFlags `json:"beta"`
}

// tierFromHeaders reads the dev-convenience header hints used on GET.
func tierFromHeaders(r *http.Request) (quota.Tier, quota.BetaFlags) {
	tier := quota.ParseTier(r.Header.Get("X-Rex-Tier"))
	flags := quota.BetaFlags{
		Beta1: r.Header.Get("X-Rex-Beta1") == "1",
		Beta2: r.Header.Get("X-Rex-Beta2") == "1",
	}
	return tier, flags
}
