package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jason-s-yu/parley/internal/apperr"
	"github.com/jason-s-yu/parley/internal/auth"
)

func setSession(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	auth.SetSessionCookie(w, token, ttl, secure)
}

func clearSession(w http.ResponseWriter, secure bool) {
	auth.ClearSessionCookie(w, secure)
}

// pathID parses the {id} URL parameter.
func pathID(r *http.Request, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, apperr.Validation("Invalid " + what + " id")
	}
	return id, nil
}
