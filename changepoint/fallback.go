package changepoint

import (
	"math"
	"sort"
	"time"

	"github.com/rustyeddy/breakpoint/series"
)

const (
	// FallbackWindow is the rolling-mean window of the deterministic
	// detector, in observations.
	FallbackWindow = 30
	// FallbackTop is how many jump dates the detector reports.
	FallbackTop = 5
)

// Jump is one fallback-detected change point: the date where the rolling
// mean of price moved, and by how much.
type Jump struct {
	Date  time.Time
	Delta float64 // absolute first difference of the rolling mean
}

// Fallback is the deterministic alternative used when the sampler cannot
// run: a trailing rolling mean of price over FallbackWindow observations,
// ranked by the largest absolute first differences. Ties rank the earlier
// date first. It needs no randomness and never fails; a series shorter than
// FallbackWindow+1 yields an empty result.
func Fallback(s series.Series) []Jump {
	if len(s) < FallbackWindow+1 {
		return nil
	}

	// Trailing rolling mean; position i covers s[i-FallbackWindow+1 .. i].
	sum := 0.0
	for _, r := range s[:FallbackWindow] {
		sum += r.Price
	}
	prev := sum / FallbackWindow

	jumps := make([]Jump, 0, len(s)-FallbackWindow)
	for i := FallbackWindow; i < len(s); i++ {
		sum += s[i].Price - s[i-FallbackWindow].Price
		cur := sum / FallbackWindow
		jumps = append(jumps, Jump{Date: s[i].Date, Delta: math.Abs(cur - prev)})
		prev = cur
	}

	sort.SliceStable(jumps, func(i, j int) bool {
		if jumps[i].Delta != jumps[j].Delta {
			return jumps[i].Delta > jumps[j].Delta
		}
		return jumps[i].Date.Before(jumps[j].Date)
	})
	if len(jumps) > FallbackTop {
		jumps = jumps[:FallbackTop]
	}
	return jumps
}
