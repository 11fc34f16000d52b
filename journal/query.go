package journal

import (
	"database/sql"
	"fmt"
)

// GetRun returns a single run record by ID.
func (j *SQLite) GetRun(runID string) (RunRecord, error) {
	var rec RunRecord

	row := j.db.QueryRow(`
		SELECT run_id, started_at, finished_at, method, fallback_reason, seed, window_from, window_to, observations, partial_trace
		FROM runs
		WHERE run_id = ?`, runID)

	err := scanRun(row.Scan, &rec)
	if err != nil {
		if err == sql.ErrNoRows {
			return RunRecord{}, fmt.Errorf("run %q not found", runID)
		}
		return RunRecord{}, err
	}
	return rec, nil
}

// LatestRun returns the most recent run. ULIDs sort chronologically, so the
// max run_id is the latest run.
func (j *SQLite) LatestRun() (RunRecord, error) {
	var rec RunRecord

	row := j.db.QueryRow(`
		SELECT run_id, started_at, finished_at, method, fallback_reason, seed, window_from, window_to, observations, partial_trace
		FROM runs
		ORDER BY run_id DESC
		LIMIT 1`)

	err := scanRun(row.Scan, &rec)
	if err != nil {
		if err == sql.ErrNoRows {
			return RunRecord{}, fmt.Errorf("no runs recorded")
		}
		return RunRecord{}, err
	}
	return rec, nil
}

// ListChangePoints returns a run's change points ranked by draw count, ties
// broken by earliest date.
func (j *SQLite) ListChangePoints(runID string) ([]ChangePointRecord, error) {
	rows, err := j.db.Query(`
		SELECT run_id, date, draw_count
		FROM change_points
		WHERE run_id = ?
		ORDER BY draw_count DESC, date ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChangePointRecord
	for rows.Next() {
		var rec ChangePointRecord
		if err := rows.Scan(&rec.RunID, &rec.Date, &rec.DrawCount); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListImpacts returns a run's event impacts ordered by change point date.
func (j *SQLite) ListImpacts(runID string) ([]ImpactRecord, error) {
	rows, err := j.db.Query(`
		SELECT run_id, change_point, event, event_date, days_diff, price_change_pct, volatility_change_pct
		FROM event_impacts
		WHERE run_id = ?
		ORDER BY change_point ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ImpactRecord
	for rows.Next() {
		var (
			rec   ImpactRecord
			price sql.NullFloat64
			vol   sql.NullFloat64
		)
		if err := rows.Scan(
			&rec.RunID,
			&rec.ChangePoint,
			&rec.Event,
			&rec.EventDate,
			&rec.DaysDiff,
			&price,
			&vol,
		); err != nil {
			return nil, err
		}
		rec.PriceChangePct, rec.PriceDefined = price.Float64, price.Valid
		rec.VolChangePct, rec.VolDefined = vol.Float64, vol.Valid
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanRun(scan func(dest ...any) error, rec *RunRecord) error {
	return scan(
		&rec.RunID,
		&rec.StartedAt,
		&rec.FinishedAt,
		&rec.Method,
		&rec.FallbackReason,
		&rec.Seed,
		&rec.WindowFrom,
		&rec.WindowTo,
		&rec.Observations,
		&rec.PartialTrace,
	)
}
