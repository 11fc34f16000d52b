// Package journal persists analysis results: CSV artifacts with the stable
// columns the publisher consumes, and a SQLite store of runs for
// introspection.
package journal

import (
	"time"
)

// RunRecord is the metadata of one pipeline run. Method records whether the
// MCMC sampler produced the result or the deterministic fallback did; a
// fallback is result metadata, never hidden.
type RunRecord struct {
	RunID          string
	StartedAt      time.Time
	FinishedAt     time.Time
	Method         string // "mcmc" or "fallback"
	FallbackReason string
	Seed           int64
	WindowFrom     time.Time
	WindowTo       time.Time
	Observations   int
	PartialTrace   bool
}

// ChangePointRecord is one aggregated change point date. DrawCount is zero
// for fallback-detected points, which have no posterior draws behind them.
type ChangePointRecord struct {
	RunID     string
	Date      time.Time
	DrawCount int
}

// ImpactRecord is one matched change point with its measured impact.
// An undefined percentage serializes as an empty CSV cell or SQL NULL,
// never as zero.
type ImpactRecord struct {
	RunID          string
	ChangePoint    time.Time
	Event          string
	EventDate      time.Time
	DaysDiff       int64
	PriceChangePct float64
	PriceDefined   bool
	VolChangePct   float64
	VolDefined     bool
}

// Journal records one run's results. File writes happen once, after all
// computation for the run completes.
type Journal interface {
	RecordRun(RunRecord) error
	RecordChangePoint(ChangePointRecord) error
	RecordImpact(ImpactRecord) error
	Close() error
}

// DateFormat is the calendar-date layout used in every artifact.
const DateFormat = "2006-01-02"
