package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jason-s-yu/parley/internal/auth"
	"github.com/jason-s-yu/parley/internal/database"
	"github.com/jason-s-yu/parley/internal/models"
	"github.com/jason-s-yu/parley/internal/respond"
	"github.com/sirupsen/logrus"
)

type contextKey struct{ name string }

var userKey = &contextKey{"user"}

// UserLookup loads the identity named by a session token.
type UserLookup interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// RequireSession rejects requests without a valid session cookie and stores the
// freshly loaded user in the request context.
func RequireSession(sessions *auth.Sessions, users UserLookup, logger *logrus.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := sessions.ParseToken(auth.TokenFromRequest(r))
			if errors.Is(err, auth.ErrNoToken) {
				respond.Error(w, logger, http.StatusUnauthorized, "Unauthorized - no token provided")
				return
			}
			if err != nil {
				logger.WithError(err).WithField("remote", r.RemoteAddr).Debug("rejected session token")
				respond.Error(w, logger, http.StatusUnauthorized, "Unauthorized - invalid token")
				return
			}

			user, err := users.GetUserByID(r.Context(), userID)
			if errors.Is(err, database.ErrNotFound) {
				respond.Error(w, logger, http.StatusUnauthorized, "Unauthorized - user not found")
				return
			}
			if err != nil {
				logger.WithError(err).WithField("user_id", userID).Error("failed to load session user")
				respond.Error(w, logger, http.StatusInternalServerError, "Internal server error")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the user stored by RequireSession.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey).(*models.User)
	return u, ok && u != nil
}
