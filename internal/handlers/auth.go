package handlers

import (
	"net/http"

	"github.com/jason-s-yu/parley/internal/account"
	"github.com/jason-s-yu/parley/internal/apperr"
	"github.com/jason-s-yu/parley/internal/middleware"
	"github.com/jason-s-yu/parley/internal/models"
)

// signup creates an account and starts a session.
//
// Request payload: { "email": "...", "password": "...", "fullName": "..." }
func (a *API) signup(w http.ResponseWriter, r *http.Request) {
	var req account.SignupInput
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	user, err := a.Accounts.Signup(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.startSession(w, user); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, envelope{"success": true, "user": user})
}

// login verifies credentials and starts a session.
//
// Request payload: { "email": "...", "password": "..." }
func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	user, err := a.Accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.startSession(w, user); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, envelope{"success": true, "user": user})
}

// logout clears the session cookie. Tokens are stateless, so nothing is revoked server side.
func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	clearSession(w, a.SecureCookies)
	a.writeJSON(w, http.StatusOK, envelope{"success": true, "message": "Logout successful"})
}

// onboard completes the caller's profile.
//
// Request payload: { "fullName", "bio", "location", "nativeLanguage", "learningLanguage" }
func (a *API) onboard(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	var req account.OnboardInput
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	user, err := a.Accounts.Onboard(r.Context(), me.ID, req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, envelope{"success": true, "user": user})
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, envelope{"success": true, "user": currentUser(r)})
}

// changePassword replaces the caller's password.
//
// Request payload: { "currentPassword": "...", "newPassword": "..." }
func (a *API) changePassword(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	if err := a.Accounts.ChangePassword(r.Context(), me.ID, req.CurrentPassword, req.NewPassword); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, envelope{"success": true, "message": "Password updated successfully"})
}

func (a *API) startSession(w http.ResponseWriter, user *models.User) error {
	token, err := a.Sessions.IssueToken(user.ID)
	if err != nil {
		return apperr.Internal("failed to issue session", err)
	}
	setSession(w, token, a.Sessions.TTL(), a.SecureCookies)
	return nil
}

// currentUser returns the user placed in the context by RequireSession.
func currentUser(r *http.Request) *models.User {
	u, _ := middleware.UserFromContext(r.Context())
	return u
}
