package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/jason-s-yu/parley/internal/apperr"
	"github.com/jason-s-yu/parley/internal/respond"
	"github.com/sirupsen/logrus"
)

// envelope is the JSON body shape shared by every endpoint.
type envelope map[string]any

func (a *API) writeJSON(w http.ResponseWriter, status int, body envelope) {
	respond.JSON(w, a.Logger, status, body)
}

// writeError classifies err and writes {success:false, message}. Internal failures are
// logged with their cause and reported to the client generically.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := apperr.Status(kind)
	body := envelope{"success": false}

	entry := a.Logger.WithError(err).WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"kind":   kind.String(),
	})

	var appErr *apperr.Error
	switch {
	case kind == apperr.KindInternal:
		entry.Error("request failed")
		body["message"] = "Internal server error"
	case errors.As(err, &appErr):
		if kind == apperr.KindExternal {
			entry.Warn("external service failed")
		}
		body["message"] = appErr.Message
		if len(appErr.MissingFields) > 0 {
			body["missingFields"] = appErr.MissingFields
		}
	}
	a.writeJSON(w, status, body)
}

// decodeJSON reads a JSON request body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return apperr.Validation("Invalid request body")
}
