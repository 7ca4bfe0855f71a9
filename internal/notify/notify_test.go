package notify

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jason-s-yu/parley/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSubscribe(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	r := NewRedis(rdb)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice, bob := uuid.New(), uuid.New()
	sub, err := r.Subscribe(ctx, alice)
	require.NoError(t, err)
	defer sub.Close()

	// events for other users are not delivered
	require.NoError(t, r.Publish(ctx, bob, Event{Type: FriendRequestReceived}))

	want := Event{
		Type:      FriendRequestAccepted,
		RequestID: uuid.New(),
		From:      models.PublicUser{ID: bob, FullName: "Bob"},
		At:        time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, r.Publish(ctx, alice, want))

	got, err := sub.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.Type, got.Type)
	assert.Equal(t, want.RequestID, got.RequestID)
	assert.Equal(t, "Bob", got.From.FullName)
	assert.True(t, want.At.Equal(got.At))
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), uuid.New(), Event{}))
}
