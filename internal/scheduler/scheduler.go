// Package scheduler owns the recurring import trigger: on every cron tick
// (and on manual request) it enqueues one task per configured feed URL.
package scheduler // import "jobimporter.app/internal/scheduler"

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/robfig/cron/v3"

	"jobimporter.app/internal/logging"
	"jobimporter.app/internal/model"
	"jobimporter.app/internal/queue"
)

// Enqueuer is the queue surface the scheduler produces into.
type Enqueuer interface {
	Enqueue(ctx context.Context, feedURL string) (*queue.Task, error)
}

// Scheduler wraps a cron runner created in a stopped state. Start and
// Stop are idempotent.
type Scheduler struct {
	cron     *cron.Cron
	queue    Enqueuer
	feedURLs []string

	mu      sync.Mutex
	started bool
}

// New creates a stopped Scheduler firing on the given cron spec.
func New(q Enqueuer, spec string, feedURLs []string) (*Scheduler, error) {
	self := &Scheduler{
		cron:     cron.New(),
		queue:    q,
		feedURLs: feedURLs,
	}

	_, err := self.cron.AddFunc(spec, func() {
		ctx := logging.With(context.Background(), slog.String("trigger", "cron"))
		self.TriggerAll(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("scheduler: invalid cron spec %q: %w", spec, err)
	}
	return self, nil
}

// Start begins the recurring schedule.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.cron.Start()
	s.started = true
	slog.Info("scheduler started", slog.Int("feeds", len(s.feedURLs)))
}

// Stop halts the recurring schedule. Already-queued tasks keep running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.cron.Stop()
	s.started = false
	slog.Info("scheduler stopped")
}

// TriggerAll enqueues one import task per configured feed URL, in order.
// A failed enqueue is logged and skipped; it never stops the enumeration.
func (s *Scheduler) TriggerAll(ctx context.Context) *model.TriggerResult {
	log := logging.FromContext(ctx)

	queued := 0
	for _, feedURL := range s.feedURLs {
		if _, err := s.queue.Enqueue(ctx, feedURL); err != nil {
			log.Error("scheduler: failed queue import",
				slog.String("feed_url", feedURL), slog.Any("error", err))
			continue
		}
		queued++
		log.Info("scheduler: queued import", slog.String("feed_url", feedURL))
	}

	return &model.TriggerResult{
		Message:  fmt.Sprintf("Queued %d import jobs", queued),
		Queued:   queued,
		FeedURLs: slices.Clone(s.feedURLs),
	}
}
