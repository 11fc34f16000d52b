// Package pipeline wires the analysis end to end: series validation, the
// sampler (or its documented fallback), aggregation, event correlation, and
// persistence.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/breakpoint/changepoint"
	"github.com/rustyeddy/breakpoint/impact"
	"github.com/rustyeddy/breakpoint/journal"
	"github.com/rustyeddy/breakpoint/series"
)

// Analysis methods recorded in run metadata.
const (
	MethodMCMC     = "mcmc"
	MethodFallback = "fallback"
)

// Runner drives one analysis run over an already-loaded series.
type Runner struct {
	Series series.Series
	Events []series.Event

	Sampler      changepoint.Config
	FallbackOnly bool // skip the sampler entirely
	Top          int  // aggregated change points to keep; 0 means the default 3

	// Journals receive the results after all computation completes.
	// Optional; an empty list keeps the run in memory.
	Journals []journal.Journal

	// Window bounds are recorded as run metadata.
	WindowFrom, WindowTo time.Time

	Log zerolog.Logger
}

// Result is one completed analysis run. Method says which path produced the
// change points; a sampler fallback is surfaced here, never hidden.
type Result struct {
	RunID          string
	Method         string
	FallbackReason string
	PartialTrace   bool

	ChangePoints []changepoint.Estimate
	Diagnostics  changepoint.Diagnostics // nil on the fallback path
	Impacts      []impact.Result
	Unmatched    []impact.Unmatched
}

// Run executes the pipeline. A DataError from validation is fatal and
// surfaces to the caller; a ModelFailure from the sampler switches to the
// deterministic fallback detector and is recorded in the result.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if err := r.Series.Validate(); err != nil {
		return nil, err
	}

	res := &Result{
		RunID:  journal.NewRunID(),
		Method: MethodMCMC,
	}
	started := time.Now().UTC()

	r.Log.Info().
		Str("run_id", res.RunID).
		Int("observations", len(r.Series)).
		Msg("starting change point analysis")

	if r.FallbackOnly {
		res.Method = MethodFallback
		res.FallbackReason = "fallback requested by caller"
	} else if err := r.sample(ctx, res); err != nil {
		var mf *changepoint.ModelFailure
		if !errors.As(err, &mf) {
			return nil, err
		}
		// The documented fallback path: observable, never silent.
		r.Log.Warn().Str("run_id", res.RunID).Err(mf).Msg("sampler failed, using rolling-statistics fallback")
		res.Method = MethodFallback
		res.FallbackReason = mf.Reason
	}

	if res.Method == MethodFallback {
		for _, j := range changepoint.Fallback(r.Series) {
			res.ChangePoints = append(res.ChangePoints, changepoint.Estimate{Date: j.Date})
		}
	}

	dates := make([]time.Time, len(res.ChangePoints))
	for i, cp := range res.ChangePoints {
		dates[i] = cp.Date
	}
	res.Impacts, res.Unmatched = impact.Correlate(r.Series, r.Events, dates)

	r.Log.Info().
		Str("run_id", res.RunID).
		Str("method", res.Method).
		Int("change_points", len(res.ChangePoints)).
		Int("impacts", len(res.Impacts)).
		Int("unmatched", len(res.Unmatched)).
		Msg("analysis complete")

	if err := r.persist(res, started); err != nil {
		return nil, err
	}
	return res, nil
}

// sample runs the MCMC path and fills in change points and diagnostics.
func (r *Runner) sample(ctx context.Context, res *Result) error {
	model, err := changepoint.NewModel(r.Series.Returns())
	if err != nil {
		return err
	}
	sampler, err := changepoint.NewSampler(model, r.Sampler)
	if err != nil {
		return err
	}

	trace, err := sampler.Run(ctx)
	if err != nil {
		return err
	}
	res.PartialTrace = trace.Partial

	res.Diagnostics = changepoint.Diagnose(trace)
	for name, d := range res.Diagnostics {
		r.Log.Debug().
			Str("param", name).
			Float64("r_hat", d.RHat).
			Float64("ess", d.ESS).
			Msg("convergence diagnostic")
	}

	top := r.Top
	if top == 0 {
		top = changepoint.TopChangePoints
	}
	res.ChangePoints, err = changepoint.Aggregate(trace, r.Series, top)
	return err
}

// persist writes the run to every journal, once, after computation.
func (r *Runner) persist(res *Result, started time.Time) error {
	if len(r.Journals) == 0 {
		return nil
	}

	run := journal.RunRecord{
		RunID:          res.RunID,
		StartedAt:      started,
		FinishedAt:     time.Now().UTC(),
		Method:         res.Method,
		FallbackReason: res.FallbackReason,
		Seed:           r.Sampler.Seed,
		WindowFrom:     r.WindowFrom,
		WindowTo:       r.WindowTo,
		Observations:   len(r.Series),
		PartialTrace:   res.PartialTrace,
	}

	for _, j := range r.Journals {
		if err := j.RecordRun(run); err != nil {
			return fmt.Errorf("record run: %w", err)
		}
		for _, cp := range res.ChangePoints {
			rec := journal.ChangePointRecord{RunID: res.RunID, Date: cp.Date, DrawCount: cp.Count}
			if err := j.RecordChangePoint(rec); err != nil {
				return fmt.Errorf("record change point: %w", err)
			}
		}
		for _, im := range res.Impacts {
			rec := journal.ImpactRecord{
				RunID:          res.RunID,
				ChangePoint:    im.ChangePoint,
				Event:          im.Event.Description,
				EventDate:      im.Event.Date,
				DaysDiff:       im.DaysDiff,
				PriceChangePct: im.PriceChangePct,
				PriceDefined:   im.PriceChangeDefined,
				VolChangePct:   im.VolChangePct,
				VolDefined:     im.VolChangeDefined,
			}
			if err := j.RecordImpact(rec); err != nil {
				return fmt.Errorf("record impact: %w", err)
			}
		}
	}
	return nil
}
