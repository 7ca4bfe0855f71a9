package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateToken(t *testing.T) {
	c := NewClient("key", "secret", "", 0)
	token, err := c.CreateToken("user-1")
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims["user_id"])
}

func TestCreateTokenNotConfigured(t *testing.T) {
	_, err := NewClient("", "", "", 0).CreateToken("user-1")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestUpsertUser(t *testing.T) {
	var got map[string]map[string]User
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/users", r.URL.Path)
		assert.Equal(t, "key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "jwt", r.Header.Get("Stream-Auth-Type"))

		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(r.Header.Get("Authorization"), claims, func(*jwt.Token) (interface{}, error) {
			return []byte("secret"), nil
		})
		assert.NoError(t, err)
		assert.Equal(t, true, claims["server"])

		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient("key", "secret", srv.URL+"/", time.Second)
	err := c.UpsertUser(context.Background(), User{ID: "u1", Name: "Alice", Image: "a.png"})
	require.NoError(t, err)
	assert.Equal(t, User{ID: "u1", Name: "Alice", Image: "a.png"}, got["users"]["u1"])
}

func TestUpsertUserErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"bad api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient("key", "secret", srv.URL, time.Second)
	err := c.UpsertUser(context.Background(), User{ID: "u1", Name: "Alice"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestUpsertUserTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	c := NewClient("key", "secret", srv.URL, 50*time.Millisecond)
	start := time.Now()
	err := c.UpsertUser(context.Background(), User{ID: "u1", Name: "Alice"})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
