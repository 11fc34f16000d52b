// Package impact correlates detected change points with a dated event list
// and measures price and volatility shifts around each match.
package impact

import (
	"math"
	"time"

	"github.com/rustyeddy/breakpoint/series"
)

const (
	// MatchTolerance is the maximum day distance between a change point
	// and its nearest event for the pair to count as a match.
	MatchTolerance = 30
	// Window is the half-window, in days, used for the before/after
	// comparison around a change point.
	Window = 30
)

// Result is the measured impact of the event matched to one change point.
// A percentage change is only meaningful when its Defined flag is set; a
// half-window at the series boundary with fewer than two observations leaves
// the field undefined rather than zero.
type Result struct {
	ChangePoint        time.Time
	Event              series.Event
	DaysDiff           int64
	PriceChangePct     float64
	PriceChangeDefined bool
	VolChangePct       float64
	VolChangeDefined   bool
}

// Unmatched records a change point with no event inside the tolerance, so
// the caller can tell exclusion apart from an impact that could not be
// computed. NearestDays is -1 when the event list was empty.
type Unmatched struct {
	ChangePoint time.Time
	NearestDays int64
}

// Correlate matches each change point to its nearest event by absolute day
// difference (ties prefer the earlier event date) and computes the windowed
// impact measures for the matches. Change points whose nearest event is more
// than MatchTolerance days away are reported separately, not dropped
// silently.
func Correlate(s series.Series, events []series.Event, changePoints []time.Time) ([]Result, []Unmatched) {
	var (
		results   []Result
		unmatched []Unmatched
	)
	for _, cp := range changePoints {
		ev, days, ok := nearestEvent(events, cp)
		if !ok {
			unmatched = append(unmatched, Unmatched{ChangePoint: cp, NearestDays: -1})
			continue
		}
		if days > MatchTolerance {
			unmatched = append(unmatched, Unmatched{ChangePoint: cp, NearestDays: days})
			continue
		}

		res := Result{ChangePoint: cp, Event: ev, DaysDiff: days}

		pre := s.Window(cp.AddDate(0, 0, -Window), cp)
		post := s.Window(cp, cp.AddDate(0, 0, Window))
		if len(pre) >= 2 && len(post) >= 2 {
			preMean := meanPrice(pre)
			postMean := meanPrice(post)
			if preMean != 0 {
				res.PriceChangePct = (postMean - preMean) / preMean * 100
				res.PriceChangeDefined = true
			}

			preVol := stdReturns(pre)
			postVol := stdReturns(post)
			if preVol > 0 {
				res.VolChangePct = (postVol - preVol) / preVol * 100
				res.VolChangeDefined = true
			}
		}

		results = append(results, res)
	}
	return results, unmatched
}

// nearestEvent returns the event minimizing the absolute day difference to
// the change point. The event list is date-sorted, so scanning in order
// makes the earlier event win exact ties.
func nearestEvent(events []series.Event, cp time.Time) (series.Event, int64, bool) {
	if len(events) == 0 {
		return series.Event{}, 0, false
	}
	best := events[0]
	bestDays := absDays(events[0].Date, cp)
	for _, ev := range events[1:] {
		if d := absDays(ev.Date, cp); d < bestDays {
			best, bestDays = ev, d
		}
	}
	return best, bestDays, true
}

func absDays(a, b time.Time) int64 {
	d := a.Sub(b).Hours() / 24
	return int64(math.Round(math.Abs(d)))
}

func meanPrice(s series.Series) float64 {
	sum := 0.0
	for _, r := range s {
		sum += r.Price
	}
	return sum / float64(len(s))
}

// stdReturns is the sample standard deviation of log returns.
func stdReturns(s series.Series) float64 {
	mean := 0.0
	for _, r := range s {
		mean += r.LogReturn
	}
	mean /= float64(len(s))

	ss := 0.0
	for _, r := range s {
		ss += (r.LogReturn - mean) * (r.LogReturn - mean)
	}
	return math.Sqrt(ss / float64(len(s)-1))
}
