// Package worker executes import tasks: fetch a feed, normalize its items,
// upsert them one by one, and record a run summary.
package worker // import "jobimporter.app/internal/worker"

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"jobimporter.app/internal/config"
	"jobimporter.app/internal/logging"
	"jobimporter.app/internal/metric"
	"jobimporter.app/internal/model"
	"jobimporter.app/internal/reader/normalizer"
	"jobimporter.app/internal/storage"
)

// Store is the persistence surface one import run needs.
type Store interface {
	UpsertJob(ctx context.Context, item model.FeedItem) (created bool, err error)
	CreateImportRun(ctx context.Context, run *model.ImportRun) error
}

// Fetcher retrieves and parses one feed document.
type Fetcher interface {
	Fetch(ctx context.Context, feedURL string) ([]model.RawItem, error)
}

// NewImporter returns the task body executed by the worker pool.
func NewImporter(fetcher Fetcher, store Store) *Importer {
	return &Importer{fetcher: fetcher, store: store}
}

type Importer struct {
	fetcher Fetcher
	store   Store
}

// Run executes one import for feedURL and returns its run summary.
//
// All data-level failure is folded into the ImportRun: a fetch/parse
// failure collapses the run into a single degenerate failure entry, and
// per-item upsert failures are recorded without aborting the item loop.
// The returned error is non-nil only when ctx was canceled before the run
// completed; the caller then requeues the task instead of losing it.
func (w *Importer) Run(ctx context.Context, feedURL string, attempt int,
) (*model.ImportRun, error) {
	log := logging.FromContext(ctx).With(
		slog.String("feed_url", feedURL), slog.Int("attempt", attempt))
	ctx = logging.WithLogger(ctx, log)

	run := &model.ImportRun{
		FeedURL:   feedURL,
		Attempt:   attempt,
		StartedAt: time.Now(),
	}

	items, err := w.fetcher.Fetch(ctx, feedURL)
	switch {
	case err != nil && ctx.Err() != nil:
		return nil, ctx.Err()
	case err != nil:
		run.FailedJobs = append(run.FailedJobs, model.ImportFailure{
			Reason: "Fetch/Parse error: " + err.Error(),
		})
	default:
		run.TotalFetched = len(items)
		if err := w.importItems(ctx, run, items); err != nil {
			return nil, err
		}
	}

	run.FinishedAt = time.Now()
	if err := w.store.CreateImportRun(ctx, run); err != nil {
		// Observability gaps are preferable to retrying applied upserts.
		log.Error("worker: failed save import run", slog.Any("error", err))
	}

	w.observe(run)
	log.Info("worker: feed processed",
		slog.Int("fetched", run.TotalFetched),
		slog.Int("imported", run.TotalImported),
		slog.Int("new", run.NewJobs),
		slog.Int("updated", run.UpdatedJobs),
		slog.Int("failed", len(run.FailedJobs)),
		slog.Duration("elapsed", run.FinishedAt.Sub(run.StartedAt)))
	return run, nil
}

// importItems upserts items sequentially in fetch order. Item failures
// are independent: one bad item never stops the rest of the run.
func (w *Importer) importItems(ctx context.Context, run *model.ImportRun,
	items []model.RawItem,
) error {
	for _, raw := range items {
		if err := ctx.Err(); err != nil {
			return err
		}

		item := normalizer.Normalize(raw)
		created, err := w.store.UpsertJob(ctx, item)
		if err != nil {
			run.FailedJobs = append(run.FailedJobs, model.ImportFailure{
				Reason: failureReason(err),
				Item:   raw,
			})
			w.count("failed")
			continue
		}

		run.TotalImported++
		if created {
			run.NewJobs++
			w.count("new")
		} else {
			run.UpdatedJobs++
			w.count("updated")
		}
	}
	return nil
}

func failureReason(err error) string {
	if errors.Is(err, storage.ErrMissingExternalID) {
		return "Missing externalId"
	}
	return err.Error()
}

func (w *Importer) observe(run *model.ImportRun) {
	if !config.Opts.HasMetricsCollector() {
		return
	}
	status := "success"
	if run.TotalFetched == 0 && len(run.FailedJobs) > 0 {
		status = "error"
	}
	metric.ImportRunDuration.WithLabelValues(status).
		Observe(run.FinishedAt.Sub(run.StartedAt).Seconds())
}

func (w *Importer) count(result string) {
	if config.Opts.HasMetricsCollector() {
		metric.ItemResults.WithLabelValues(result).Inc()
	}
}
