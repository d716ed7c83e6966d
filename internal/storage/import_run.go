package storage // import "jobimporter.app/internal/storage"

import (
	"context"
	"encoding/json"
	"fmt"

	"jobimporter.app/internal/model"
)

// CreateImportRun persists one run summary. import_logs is append-only:
// a stored run is never updated and the pipeline never deletes it.
func (s *Storage) CreateImportRun(ctx context.Context,
	run *model.ImportRun,
) error {
	failed := run.FailedJobs
	if failed == nil {
		failed = []model.ImportFailure{}
	}
	failedJSON, err := json.Marshal(failed)
	if err != nil {
		return fmt.Errorf("storage: marshal failed jobs: %w", err)
	}

	err = s.db.QueryRow(ctx, `
INSERT INTO import_logs (feed_url, attempt, started_at, finished_at,
                         total_fetched, total_imported, new_jobs,
                         updated_jobs, failed_jobs)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb)
RETURNING id, created_at`,
		run.FeedURL, run.Attempt, run.StartedAt, run.FinishedAt,
		run.TotalFetched, run.TotalImported, run.NewJobs, run.UpdatedJobs,
		string(failedJSON)).
		Scan(&run.ID, &run.CreatedAt)
	if err != nil {
		return fmt.Errorf("storage: create import run for %s: %w",
			run.FeedURL, err)
	}
	return nil
}

// RecentImportRuns returns up to limit run summaries, most recent first.
func (s *Storage) RecentImportRuns(ctx context.Context, limit int,
) ([]model.ImportRun, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, feed_url, attempt, started_at, finished_at, total_fetched,
       total_imported, new_jobs, updated_jobs, failed_jobs, created_at
FROM import_logs
ORDER BY created_at DESC, id DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: query import runs: %w", err)
	}
	defer rows.Close()

	var runs []model.ImportRun
	for rows.Next() {
		var run model.ImportRun
		var failedJSON []byte
		err := rows.Scan(&run.ID, &run.FeedURL, &run.Attempt, &run.StartedAt,
			&run.FinishedAt, &run.TotalFetched, &run.TotalImported,
			&run.NewJobs, &run.UpdatedJobs, &failedJSON, &run.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("storage: scan import run: %w", err)
		}
		if err := json.Unmarshal(failedJSON, &run.FailedJobs); err != nil {
			return nil, fmt.Errorf("storage: unmarshal failed jobs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate import runs: %w", err)
	}
	return runs, nil
}

// LastImportRun returns the most recent run summary, or nil when no run
// has been recorded yet.
func (s *Storage) LastImportRun(ctx context.Context,
) (*model.ImportRun, error) {
	runs, err := s.RecentImportRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}
