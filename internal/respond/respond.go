// Package respond writes the JSON envelope shared by the HTTP handlers and middleware.
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

// JSON writes body with status. The header is already sent when encoding fails, so the
// failure is only logged.
func JSON(w http.ResponseWriter, logger logrus.FieldLogger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.WithError(err).WithField("status", status).Warn("failed to write response body")
	}
}

// Error writes {success:false, message}.
func Error(w http.ResponseWriter, logger logrus.FieldLogger, status int, msg string) {
	JSON(w, logger, status, map[string]any{"success": false, "message": msg})
}
