package chat

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSyncer struct {
	mu    sync.Mutex
	users []User
	fail  error
}

func (r *recordingSyncer) UpsertUser(ctx context.Context, u User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.users = append(r.users, u)
	return nil
}

func (r *recordingSyncer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	q := NewQueue(rdb, "test_dirsync")
	q.popTimeout = time.Second
	return q
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestQueueProcessOne(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.UpsertUser(ctx, User{ID: "u1", Name: "Alice"}))
	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	dir := &recordingSyncer{}
	processed, err := q.ProcessOne(ctx, dir, quietLogger())
	require.NoError(t, err)
	assert.True(t, processed)
	require.Len(t, dir.users, 1)
	assert.Equal(t, "Alice", dir.users[0].Name)

	n, err = q.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestQueueRequeuesFailures(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	require.NoError(t, q.UpsertUser(ctx, User{ID: "u1", Name: "Alice"}))

	dir := &recordingSyncer{fail: errors.New("stream down")}
	for i := 0; i < MaxAttempts; i++ {
		processed, err := q.ProcessOne(ctx, dir, quietLogger())
		require.NoError(t, err)
		assert.True(t, processed)
	}

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n, "job dropped after max attempts")
}

func TestQueueDrain(t *testing.T) {
	q := newTestQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, q.UpsertUser(ctx, User{ID: name, Name: name}))
	}

	dir := &recordingSyncer{}
	done := make(chan error, 1)
	go func() { done <- q.Drain(ctx, dir, quietLogger()) }()

	assert.Eventually(t, func() bool { return dir.count() == 3 }, 5*time.Second, 20*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("drain did not stop after cancel")
	}
}
