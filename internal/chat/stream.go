package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultBaseURL is the Stream Chat REST endpoint.
const DefaultBaseURL = "https://chat.stream-io-api.com"

// Client talks to the Stream Chat REST API with server-side credentials.
type Client struct {
	apiKey     string
	secret     []byte
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient builds a Stream client. timeout bounds each upsert call.
func NewClient(apiKey, secret, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		apiKey:     apiKey,
		secret:     []byte(secret),
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

func (c *Client) configured() bool {
	return c.apiKey != "" && len(c.secret) > 0
}

// CreateToken returns a user token: an HS256 JWT with a user_id claim signed by the API secret.
func (c *Client) CreateToken(userID string) (string, error) {
	if !c.configured() {
		return "", ErrNotConfigured
	}
	if userID == "" {
		return "", fmt.Errorf("user id is required")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": userID})
	return token.SignedString(c.secret)
}

func (c *Client) serverToken() (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"server": true})
	return token.SignedString(c.secret)
}

// UpsertUser creates or updates u in the chat service.
func (c *Client) UpsertUser(ctx context.Context, u User) error {
	if !c.configured() {
		return ErrNotConfigured
	}
	body, err := json.Marshal(map[string]any{
		"users": map[string]User{u.ID: u},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal upsert: %w", err)
	}
	auth, err := c.serverToken()
	if err != nil {
		return fmt.Errorf("failed to sign server token: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + "/users?api_key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", auth)
	req.Header.Set("Stream-Auth-Type", "jwt")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("stream upsert %s: %w", u.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("stream upsert %s: status %d: %s", u.ID, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
