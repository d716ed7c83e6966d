package model // import "jobimporter.app/internal/model"

import "time"

// JobRecord is a persisted job listing, deduplicated by ExternalID.
// LastSeenAt advances on every successful upsert touching the record.
type JobRecord struct {
	ID          int64
	ExternalID  string
	Title       string
	Company     string
	Location    string
	Description string
	URL         string
	Raw         RawItem
	LastSeenAt  time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
