package changepoint

import (
	"fmt"
	"sort"
	"time"

	"github.com/rustyeddy/breakpoint/series"
)

// TopChangePoints is how many aggregated dates the publisher consumes.
const TopChangePoints = 3

// Estimate is a change point date with the number of posterior draws that
// landed on it. Uncertainty beyond the count is deliberately discarded.
type Estimate struct {
	Date  time.Time
	Count int
}

// Aggregate maps every retained tau draw to its calendar date and returns
// the top most frequent dates, ordered by count descending with ties broken
// by earliest date. The result is deterministic for a given trace.
func Aggregate(t *Trace, s series.Series, top int) ([]Estimate, error) {
	counts := make(map[time.Time]int)
	for _, tau := range t.TauDraws() {
		if tau < 0 || tau >= len(s) {
			return nil, fmt.Errorf("aggregate: tau draw %d outside series of length %d", tau, len(s))
		}
		counts[s[tau].Date]++
	}

	ests := make([]Estimate, 0, len(counts))
	for date, c := range counts {
		ests = append(ests, Estimate{Date: date, Count: c})
	}
	sort.Slice(ests, func(i, j int) bool {
		if ests[i].Count != ests[j].Count {
			return ests[i].Count > ests[j].Count
		}
		return ests[i].Date.Before(ests[j].Date)
	})

	if top > 0 && len(ests) > top {
		ests = ests[:top]
	}
	return ests, nil
}
