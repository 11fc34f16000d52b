package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordRun(r RunRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO runs
		(run_id, started_at, finished_at, method, fallback_reason, seed, window_from, window_to, observations, partial_trace)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.StartedAt, r.FinishedAt, r.Method, r.FallbackReason,
		r.Seed, r.WindowFrom, r.WindowTo, r.Observations, r.PartialTrace,
	)
	return err
}

func (j *SQLite) RecordChangePoint(c ChangePointRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO change_points (run_id, date, draw_count)
		VALUES (?, ?, ?)`,
		c.RunID, c.Date, c.DrawCount,
	)
	return err
}

func (j *SQLite) RecordImpact(r ImpactRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO event_impacts
		(run_id, change_point, event, event_date, days_diff, price_change_pct, volatility_change_pct)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.ChangePoint, r.Event, r.EventDate, r.DaysDiff,
		nullable(r.PriceChangePct, r.PriceDefined),
		nullable(r.VolChangePct, r.VolDefined),
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

func nullable(v float64, defined bool) interface{} {
	if !defined {
		return nil
	}
	return v
}
