package storage // import "jobimporter.app/internal/storage"

var schemaVersion = len(migrations)

// Order is important. Add new migrations at the end of the list.
var migrations = []string{
	`
CREATE TABLE jobs (
	id bigint generated always as identity primary key,
	external_id text not null unique,
	title text not null default '',
	company text not null default '',
	location text not null default '',
	description text not null default '',
	url text not null default '',
	raw jsonb not null default '{}',
	last_seen_at timestamp with time zone not null default now(),
	created_at timestamp with time zone not null default now(),
	updated_at timestamp with time zone not null default now()
);

CREATE TABLE import_logs (
	id bigint generated always as identity primary key,
	feed_url text not null,
	attempt integer not null default 0,
	started_at timestamp with time zone not null,
	finished_at timestamp with time zone not null,
	total_fetched integer not null default 0,
	total_imported integer not null default 0,
	new_jobs integer not null default 0,
	updated_jobs integer not null default 0,
	failed_jobs jsonb not null default '[]',
	created_at timestamp with time zone not null default now()
);

CREATE INDEX import_logs_created_at_idx ON import_logs (created_at DESC);`,
}
