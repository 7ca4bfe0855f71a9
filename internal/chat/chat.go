// Package chat mirrors identities into the external chat service and issues the
// client tokens the frontend uses to connect to it.
package chat

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when the chat service credentials are missing.
var ErrNotConfigured = errors.New("chat service is not configured")

// User is the identity record kept by the chat service.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// Syncer receives identity upserts. Implementations may deliver them later.
type Syncer interface {
	UpsertUser(ctx context.Context, u User) error
}

// TokenIssuer creates chat client tokens for a user id.
type TokenIssuer interface {
	CreateToken(userID string) (string, error)
}

// Directory is the full chat capability: sync plus token issuance.
type Directory interface {
	Syncer
	TokenIssuer
}
