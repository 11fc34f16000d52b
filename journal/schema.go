package journal

const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	started_at DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	method TEXT NOT NULL,
	fallback_reason TEXT NOT NULL DEFAULT '',
	seed INTEGER NOT NULL,
	window_from DATETIME NOT NULL,
	window_to DATETIME NOT NULL,
	observations INTEGER NOT NULL,
	partial_trace INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS change_points (
	run_id TEXT NOT NULL,
	date DATETIME NOT NULL,
	draw_count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS event_impacts (
	run_id TEXT NOT NULL,
	change_point DATETIME NOT NULL,
	event TEXT NOT NULL,
	event_date DATETIME NOT NULL,
	days_diff INTEGER NOT NULL,
	price_change_pct REAL,
	volatility_change_pct REAL
);

CREATE INDEX IF NOT EXISTS idx_change_points_run ON change_points(run_id);
CREATE INDEX IF NOT EXISTS idx_event_impacts_run ON event_impacts(run_id);
`
