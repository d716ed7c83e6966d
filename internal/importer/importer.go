// Package importer is the producer-facing service surface consumed by the
// HTTP layer: enqueue imports, trigger all configured feeds, and read run
// summaries and aggregate statistics.
package importer // import "jobimporter.app/internal/importer"

import (
	"context"

	"jobimporter.app/internal/model"
	"jobimporter.app/internal/queue"
	"jobimporter.app/internal/scheduler"
	"jobimporter.app/internal/storage"
)

const (
	defaultRunsLimit = 100
	statsRecentRuns  = 10
)

// NewService wires the service boundary over the shared store, queue and
// scheduler.
func NewService(store *storage.Storage, q *queue.Queue,
	sched *scheduler.Scheduler,
) *Service {
	return &Service{store: store, queue: q, scheduler: sched}
}

type Service struct {
	store     *storage.Storage
	queue     *queue.Queue
	scheduler *scheduler.Scheduler
}

// EnqueueImport queues a single import task for feedURL.
func (s *Service) EnqueueImport(ctx context.Context, feedURL string,
) (*queue.Task, error) {
	return s.queue.Enqueue(ctx, feedURL)
}

// TriggerImportsNow synchronously enqueues one task per configured feed.
func (s *Service) TriggerImportsNow(ctx context.Context) *model.TriggerResult {
	return s.scheduler.TriggerAll(ctx)
}

// ListRecentRuns returns run summaries, most recent first.
func (s *Service) ListRecentRuns(ctx context.Context, limit int,
) ([]model.ImportRun, error) {
	if limit <= 0 {
		limit = defaultRunsLimit
	}
	return s.store.RecentImportRuns(ctx, limit)
}

// CountJobs returns the number of stored job records.
func (s *Service) CountJobs(ctx context.Context) (int64, error) {
	return s.store.CountJobs(ctx)
}

// MostRecentRun returns the latest run summary, or nil when none exists.
func (s *Service) MostRecentRun(ctx context.Context) (*model.ImportRun, error) {
	return s.store.LastImportRun(ctx)
}

// Stats aggregates job count and recent run activity.
func (s *Service) Stats(ctx context.Context) (*model.Stats, error) {
	total, err := s.store.CountJobs(ctx)
	if err != nil {
		return nil, err
	}

	recent, err := s.store.RecentImportRuns(ctx, statsRecentRuns)
	if err != nil {
		return nil, err
	}

	stats := &model.Stats{TotalJobs: total, RecentImports: len(recent)}
	if len(recent) > 0 {
		stats.LastImport = &recent[0]
	}
	return stats, nil
}
