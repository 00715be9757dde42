// Package render writes the JSON envelope shared by every endpoint:
// {"success": bool, "message": string, ...}.
package render

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"notes-saas/internal/apperr"
	"notes-saas/internal/logger"
)

// M is a loose JSON object.
type M map[string]any

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes a success envelope merged with fields.
func OK(w http.ResponseWriter, status int, fields M) {
	body := M{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	JSON(w, status, body)
}

// Error translates err into the failure envelope. Internal errors are logged
// with their cause and reported with a generic message.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	body := M{
		"success": false,
		"message": apperr.ErrorMessage(err),
	}
	if apperr.UpgradeRequired(err) {
		body["upgradeRequired"] = true
	}

	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
	} else {
		log.Debug("request rejected", zap.String("code", apperr.ErrorCode(err)), zap.Error(err))
	}

	JSON(w, status, body)
}
