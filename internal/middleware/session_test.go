package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/parley/internal/auth"
	"github.com/jason-s-yu/parley/internal/database/dbtest"
	"github.com/jason-s-yu/parley/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func setup(t *testing.T) (*auth.Sessions, *dbtest.Store, *models.User, http.Handler) {
	t.Helper()
	sessions, err := auth.NewSessions("test-secret", time.Hour)
	require.NoError(t, err)

	store := dbtest.New()
	user := &models.User{Email: "ana@example.com", Password: "hash", FullName: "Ana"}
	require.NoError(t, store.CreateUser(context.Background(), user))

	h := RequireSession(sessions, store, quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		w.Write([]byte(u.ID.String()))
	}))
	return sessions, store, user, h
}

func serve(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	return body.Message
}

func TestRequireSessionAllowsValidToken(t *testing.T) {
	sessions, _, user, h := setup(t)
	token, err := sessions.IssueToken(user.ID)
	require.NoError(t, err)

	rec := serve(h, token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, user.ID.String(), rec.Body.String())
}

func TestRequireSessionRejects(t *testing.T) {
	sessions, store, user, h := setup(t)
	other, err := auth.NewSessions("another-secret", time.Hour)
	require.NoError(t, err)
	forged, err := other.IssueToken(user.ID)
	require.NoError(t, err)

	rec := serve(h, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized - no token provided", message(t, rec))

	rec = serve(h, forged)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized - invalid token", message(t, rec))

	rec = serve(h, "not.a.jwt")
	assert.Equal(t, "Unauthorized - invalid token", message(t, rec))

	ghost, err := sessions.IssueToken(uuid.New())
	require.NoError(t, err)
	rec = serve(h, ghost)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized - user not found", message(t, rec))

	token, err := sessions.IssueToken(user.ID)
	require.NoError(t, err)
	store.DeleteUser(user.ID)
	rec = serve(h, token)
	assert.Equal(t, "Unauthorized - user not found", message(t, rec))
}

func TestRequireSessionStoreFailure(t *testing.T) {
	sessions, store, user, h := setup(t)
	token, err := sessions.IssueToken(user.ID)
	require.NoError(t, err)
	store.FailOn("GetUserByID", errors.New("pool closed"))

	rec := serve(h, token)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Internal server error", message(t, rec))
}

func TestLogMiddlewareRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	h := LogMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/auth/signup", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "POST", entry["method"])
	assert.Equal(t, "/api/auth/signup", entry["path"])
	assert.Equal(t, float64(http.StatusCreated), entry["status"])
	assert.Equal(t, "info", entry["level"])
}
