package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jason-s-yu/parley/internal/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultQueueName is the Redis list holding pending directory upserts.
const DefaultQueueName = "parley_dirsync"

// MaxAttempts is how many times a job is delivered before it is dropped.
const MaxAttempts = 3

// Job is one queued upsert.
type Job struct {
	User       User  `json:"user"`
	Attempts   int   `json:"attempts"`
	EnqueuedAt int64 `json:"enqueued_at"`
}

// Queue defers upserts through a Redis list so identity writes never wait on the chat service.
type Queue struct {
	rdb        *redis.Client
	name       string
	popTimeout time.Duration
}

func NewQueue(rdb *redis.Client, name string) *Queue {
	if name == "" {
		name = DefaultQueueName
	}
	return &Queue{rdb: rdb, name: name, popTimeout: 3 * time.Second}
}

// UpsertUser enqueues u for a later Drain.
func (q *Queue) UpsertUser(ctx context.Context, u User) error {
	return q.push(ctx, Job{User: u, EnqueuedAt: time.Now().UnixMilli()})
}

func (q *Queue) push(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal dirsync job: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.name, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", q.name, err)
	}
	return nil
}

// Len returns the number of queued jobs.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.name).Result()
}

// ProcessOne pops a single job and applies it to dir. It reports false when the pop
// timed out with nothing queued. Failed jobs are re-queued until MaxAttempts.
func (q *Queue) ProcessOne(ctx context.Context, dir Syncer, logger *logrus.Logger) (bool, error) {
	res, err := q.rdb.BLPop(ctx, q.popTimeout, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(res) < 2 {
		return false, nil
	}

	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		logger.WithError(err).Warn("dropping malformed dirsync job")
		metrics.ObserveDirSync("dropped")
		return true, nil
	}

	job.Attempts++
	if err := dir.UpsertUser(ctx, job.User); err != nil {
		entry := logger.WithError(err).WithFields(logrus.Fields{
			"user_id":  job.User.ID,
			"attempts": job.Attempts,
		})
		if job.Attempts >= MaxAttempts {
			entry.Error("dirsync job failed, dropping")
			metrics.ObserveDirSync("dropped")
			return true, nil
		}
		entry.Warn("dirsync job failed, requeueing")
		metrics.ObserveDirSync("retry")
		if pushErr := q.push(ctx, job); pushErr != nil {
			return true, pushErr
		}
		return true, nil
	}

	logger.WithField("user_id", job.User.ID).Debug("dirsync upsert applied")
	metrics.ObserveDirSync("ok")
	return true, nil
}

// Drain applies queued jobs to dir until ctx is cancelled.
func (q *Queue) Drain(ctx context.Context, dir Syncer, logger *logrus.Logger) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		if _, err := q.ProcessOne(ctx, dir, logger); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.WithError(err).Error("dirsync pop failed")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}
	}
}
