package handlers

import (
	"net/http"

	"github.com/jason-s-yu/parley/internal/apperr"
)

// chatToken issues a chat client token for the caller.
func (a *API) chatToken(w http.ResponseWriter, r *http.Request) {
	token, err := a.Chat.CreateToken(currentUser(r).ID.String())
	if err != nil {
		a.writeError(w, r, apperr.External("Failed to generate chat token", err))
		return
	}
	a.writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"message": "Chat token generated successfully",
		"data":    envelope{"token": token},
	})
}
