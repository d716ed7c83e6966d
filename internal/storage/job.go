package storage // import "jobimporter.app/internal/storage"

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"jobimporter.app/internal/model"
)

// ErrMissingExternalID reports an item whose external id could not be
// derived. The caller records it as a per-item failure; it is never fatal
// to a run.
var ErrMissingExternalID = errors.New("storage: job has no external id")

// UpsertJob inserts the item as a new job record or replaces the fields of
// the existing record with the same external id, advancing last_seen_at.
// It reports created=true for an insert and created=false for an update.
//
// The unique index on external_id is the only concurrency control here:
// concurrent upserts racing on the same id resolve last-write-wins.
func (s *Storage) UpsertJob(ctx context.Context, item model.FeedItem,
) (created bool, err error) {
	if item.ExternalID == "" {
		return false, ErrMissingExternalID
	}

	raw, err := json.Marshal(item.Raw)
	if err != nil {
		return false, fmt.Errorf("storage: marshal raw item: %w", err)
	}

	rows, _ := s.db.Query(ctx, `
INSERT INTO jobs (external_id, title, company, location, description, url,
                  raw, last_seen_at)
VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, now())
ON CONFLICT (external_id) DO UPDATE SET
  title = excluded.title,
  company = excluded.company,
  location = excluded.location,
  description = excluded.description,
  url = excluded.url,
  raw = excluded.raw,
  last_seen_at = now(),
  updated_at = now()
RETURNING (xmax = 0)`,
		item.ExternalID, item.Title, item.Company, item.Location,
		item.Description, item.URL, string(raw))

	created, err = pgx.CollectExactlyOneRow(rows, pgx.RowTo[bool])
	if err != nil {
		return false, fmt.Errorf("storage: upsert job %q: %w",
			item.ExternalID, err)
	}
	return created, nil
}

// CountJobs returns the number of job records.
func (s *Storage) CountJobs(ctx context.Context) (int64, error) {
	rows, _ := s.db.Query(ctx, `SELECT count(*) FROM jobs`)
	n, err := pgx.CollectExactlyOneRow(rows, pgx.RowTo[int64])
	if err != nil {
		return 0, fmt.Errorf("storage: count jobs: %w", err)
	}
	return n, nil
}
