// Package queue implements the at-least-once import task queue on Redis:
// a list for ready tasks, a sorted set for tasks waiting out their retry
// backoff, and a dead-letter list for abandoned tasks.
package queue // import "jobimporter.app/internal/queue"

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"

	"jobimporter.app/internal/logging"
)

const (
	queueKey   = "feed-import-queue"
	delayedKey = queueKey + ":delayed"
	deadKey    = queueKey + ":dead"

	popTimeout      = time.Second
	promoteInterval = time.Second
)

// Task is one queued unit of work wrapping a feed URL. Attempt counts
// completed executions: 0 for a fresh task.
type Task struct {
	FeedURL string `json:"feedUrl"`
	Attempt int    `json:"attempt"`
}

// Queue produces and consumes import tasks.
type Queue struct {
	rdb         *redis.Client
	maxAttempts int
	retryDelay  time.Duration
}

// New returns a Queue. maxAttempts bounds executions per task; retryDelay
// seeds the exponential backoff between attempts.
func New(rdb *redis.Client, maxAttempts int, retryDelay time.Duration) *Queue {
	return &Queue{rdb: rdb, maxAttempts: maxAttempts, retryDelay: retryDelay}
}

// Enqueue pushes a fresh task for feedURL onto the ready list.
func (q *Queue) Enqueue(ctx context.Context, feedURL string) (*Task, error) {
	t := Task{FeedURL: feedURL}
	if err := q.push(ctx, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (q *Queue) push(ctx context.Context, t *Task) error {
	b, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("queue: marshal task: %w", err)
	}
	if err := q.rdb.LPush(ctx, queueKey, b).Err(); err != nil {
		return fmt.Errorf("queue: enqueue %s: %w", t.FeedURL, err)
	}
	return nil
}

// Next pops the next ready task. It returns nil without error when no task
// arrived within the poll interval, so consumers can observe ctx between
// polls. An undecodable payload is moved to the dead-letter list.
func (q *Queue) Next(ctx context.Context) (*Task, error) {
	res, err := q.rdb.BRPop(ctx, popTimeout, queueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("queue: pop task: %w", err)
	}

	var t Task
	if err := json.Unmarshal([]byte(res[1]), &t); err != nil {
		logging.FromContext(ctx).Error("queue: dropping undecodable task",
			slog.Any("error", err))
		q.rdb.LPush(ctx, deadKey, res[1])
		return nil, nil
	}
	return &t, nil
}

// Retry schedules the task for another attempt after an exponentially
// growing delay. Once attempts are exhausted the task is dead-lettered and
// never resurfaces on its own.
func (q *Queue) Retry(ctx context.Context, t Task) error {
	t.Attempt++
	b, err := json.Marshal(&t)
	if err != nil {
		return fmt.Errorf("queue: marshal task: %w", err)
	}

	log := logging.FromContext(ctx).With(
		slog.String("feed_url", t.FeedURL), slog.Int("attempt", t.Attempt))

	if t.Attempt >= q.maxAttempts {
		if err := q.rdb.LPush(ctx, deadKey, b).Err(); err != nil {
			return fmt.Errorf("queue: dead-letter %s: %w", t.FeedURL, err)
		}
		log.Warn("queue: task abandoned after max attempts")
		return nil
	}

	delay := q.delay(t.Attempt)
	readyAt := time.Now().Add(delay)
	err = q.rdb.ZAdd(ctx, delayedKey, redis.Z{
		Score:  float64(readyAt.UnixMilli()),
		Member: b,
	}).Err()
	if err != nil {
		return fmt.Errorf("queue: schedule retry for %s: %w", t.FeedURL, err)
	}

	log.Info("queue: task scheduled for retry", slog.Duration("delay", delay))
	return nil
}

// delay returns the backoff before the given attempt: retryDelay before
// attempt 1, doubling for each further attempt.
func (q *Queue) delay(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = q.retryDelay
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxElapsedTime = 0

	d := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}

// Run promotes delayed tasks whose backoff expired back onto the ready
// list. It blocks until ctx is done.
func (q *Queue) Run(ctx context.Context) error {
	log := logging.FromContext(ctx)
	log.Info("queue: delayed task promoter started")

	ticker := time.NewTicker(promoteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("queue: delayed task promoter stopped")
			return nil
		case <-ticker.C:
			if err := q.promoteDue(ctx); err != nil && ctx.Err() == nil {
				log.Error("queue: failed promote delayed tasks",
					slog.Any("error", err))
			}
		}
	}
}

func (q *Queue) promoteDue(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	members, err := q.rdb.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil {
		return fmt.Errorf("queue: range delayed tasks: %w", err)
	}

	for _, member := range members {
		// ZRem arbitrates between concurrent promoters.
		removed, err := q.rdb.ZRem(ctx, delayedKey, member).Result()
		if err != nil {
			return fmt.Errorf("queue: remove delayed task: %w", err)
		}
		if removed == 0 {
			continue
		}
		if err := q.rdb.LPush(ctx, queueKey, member).Err(); err != nil {
			return fmt.Errorf("queue: promote delayed task: %w", err)
		}
	}
	return nil
}
