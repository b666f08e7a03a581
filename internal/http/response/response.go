package response

import (
	"encoding/json"
	"net/http"

	"github.com/findmymua/fmm-backend/internal/apperrors"
	"github.com/findmymua/fmm-backend/pkg/logger"
)

// ErrorBody is the uniform failure shape: {"success":false,"message":...}.
type ErrorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// Error is the central translator: every handler-level error funnels through
// here and becomes a status code plus a client-safe message.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperrors.From(err)

	if appErr.HTTPCode >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			"code", appErr.Code,
			"error", appErr.Error(),
			"path", r.URL.Path,
		)
	} else {
		logger.DebugContext(r.Context(), "request rejected",
			"code", appErr.Code,
			"message", appErr.Message,
			"path", r.URL.Path,
		)
	}

	WriteJSON(w, appErr.HTTPCode, ErrorBody{Success: false, Message: appErr.Message})
}
