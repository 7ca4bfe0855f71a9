// Package notify fans friend-request events out to the affected users over Redis pub/sub.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/parley/internal/models"
	"github.com/redis/go-redis/v9"
)

type EventType string

const (
	FriendRequestReceived EventType = "friend_request.received"
	FriendRequestAccepted EventType = "friend_request.accepted"
)

// Event is delivered to a single user.
type Event struct {
	Type      EventType         `json:"type"`
	RequestID uuid.UUID         `json:"requestId"`
	From      models.PublicUser `json:"from"`
	At        time.Time         `json:"at"`
}

// Publisher delivers an event to userID.
type Publisher interface {
	Publish(ctx context.Context, userID uuid.UUID, ev Event) error
}

// Nop discards events. Used when Redis is not configured.
type Nop struct{}

func (Nop) Publish(context.Context, uuid.UUID, Event) error { return nil }

const channelPrefix = "parley:notify:"

// Channel is the pub/sub channel for userID's events.
func Channel(userID uuid.UUID) string {
	return channelPrefix + userID.String()
}

// Redis publishes and subscribes to per-user channels.
type Redis struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func (r *Redis) Publish(ctx context.Context, userID uuid.UUID, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := r.rdb.Publish(ctx, Channel(userID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", Channel(userID), err)
	}
	return nil
}

// Subscribe opens a subscription to userID's channel. The subscription is confirmed by the
// server before Subscribe returns.
func (r *Redis) Subscribe(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	ps := r.rdb.Subscribe(ctx, Channel(userID))
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", Channel(userID), err)
	}
	return &Subscription{ps: ps}, nil
}

type Subscription struct {
	ps *redis.PubSub
}

// Next blocks until the next event arrives or ctx is done.
func (s *Subscription) Next(ctx context.Context) (Event, error) {
	for {
		msg, err := s.ps.ReceiveMessage(ctx)
		if err != nil {
			return Event{}, err
		}
		var ev Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			continue
		}
		return ev, nil
	}
}

func (s *Subscription) Close() error {
	return s.ps.Close()
}
