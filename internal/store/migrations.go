package store

// migrations are applied in order; schema_version records the last applied
// index + 1. Never edit an entry after release, append a new one.
var migrations = []string{
	// v1: intervals + append-only interval_events, with the partial unique
	// index that enforces at most one active interval at a time.
	`
	CREATE TABLE IF NOT EXISTS intervals (
		id TEXT PRIMARY KEY,
		duration_sec INTEGER NOT NULL,
		status TEXT NOT NULL
			CHECK(status IN ('running','paused','finished','completed','abandoned','cancelled','interrupted')),
		started_at INTEGER NOT NULL,
		ended_at INTEGER,
		worked_sec INTEGER NOT NULL DEFAULT 0,
		run_started_at INTEGER,
		heartbeat_at INTEGER
	);

	CREATE TABLE IF NOT EXISTS interval_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		interval_id TEXT NOT NULL REFERENCES intervals(id),
		event_type TEXT NOT NULL
			CHECK(event_type IN ('started','paused','resumed','finished','completed','abandoned','cancelled','interrupted')),
		event_at INTEGER NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_one_active
		ON intervals((1)) WHERE status IN ('running','paused','finished','interrupted');
	CREATE INDEX IF NOT EXISTS idx_events_interval_at
		ON interval_events(interval_id, event_at);
	CREATE INDEX IF NOT EXISTS idx_intervals_started_desc
		ON intervals(started_at DESC);
	`,
}
