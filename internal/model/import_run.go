package model // import "jobimporter.app/internal/model"

import "time"

// ImportFailure records one item (or the whole run) that could not be
// imported. Item is nil for run-level fetch/parse failures.
type ImportFailure struct {
	Reason string  `json:"reason"`
	Item   RawItem `json:"item,omitempty"`
}

// ImportRun summarizes one execution of the import pipeline for a single
// feed URL. It is assembled in memory by the worker and persisted exactly
// once when the task body finishes, then never updated.
//
// Attempt is the queue attempt that produced this run. A task that fails
// and succeeds on retry leaves one run per attempt behind.
type ImportRun struct {
	ID            int64           `json:"id"`
	FeedURL       string          `json:"feedUrl"`
	Attempt       int             `json:"attempt"`
	StartedAt     time.Time       `json:"startedAt"`
	FinishedAt    time.Time       `json:"finishedAt"`
	TotalFetched  int             `json:"totalFetched"`
	TotalImported int             `json:"totalImported"`
	NewJobs       int             `json:"newJobs"`
	UpdatedJobs   int             `json:"updatedJobs"`
	FailedJobs    []ImportFailure `json:"failedJobs"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// TriggerResult is what a manual or scheduled trigger reports back.
type TriggerResult struct {
	Message  string   `json:"message"`
	Queued   int      `json:"queued"`
	FeedURLs []string `json:"feedUrls"`
}

// Stats aggregates the read-only statistics exposed to the HTTP layer.
type Stats struct {
	TotalJobs     int64      `json:"totalJobs"`
	LastImport    *ImportRun `json:"lastImport,omitempty"`
	RecentImports int        `json:"recentImports"`
}
