// Package series provides the cleaned daily price series and the dated
// event list consumed by the change point analysis.
package series

import (
	"fmt"
	"math"
	"time"
)

// Record is one observation of the cleaned series. LogReturn is
// ln(Price[i]) - ln(Price[i-1]); the first raw row has no return and is
// dropped during loading, so every Record carries a valid return.
type Record struct {
	Date      time.Time
	Price     float64
	LogReturn float64
}

// Series is an ordered price series with strictly increasing dates.
// It is read-only to everything downstream of the loader.
type Series []Record

// Event is an externally supplied dated event.
type Event struct {
	Date        time.Time
	Description string
}

// DataError reports input the analysis cannot proceed on: an empty series,
// non-finite values, or fewer observations than a windowed computation
// needs. It is fatal to the run.
type DataError struct {
	Reason string
}

func (e *DataError) Error() string {
	return "series: " + e.Reason
}

// Validate checks the Series invariants: non-empty, finite prices and
// returns, strictly increasing dates.
func (s Series) Validate() error {
	if len(s) == 0 {
		return &DataError{Reason: "empty series"}
	}
	for i, r := range s {
		if math.IsNaN(r.Price) || math.IsInf(r.Price, 0) {
			return &DataError{Reason: fmt.Sprintf("non-finite price at index %d", i)}
		}
		if math.IsNaN(r.LogReturn) || math.IsInf(r.LogReturn, 0) {
			return &DataError{Reason: fmt.Sprintf("non-finite return at index %d", i)}
		}
		if i > 0 && !s[i-1].Date.Before(r.Date) {
			return &DataError{Reason: fmt.Sprintf("dates not strictly increasing at index %d", i)}
		}
	}
	return nil
}

// Window returns the sub-series with from <= Date <= to.
func (s Series) Window(from, to time.Time) Series {
	var out Series
	for _, r := range s {
		if r.Date.Before(from) || r.Date.After(to) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Returns copies out the log-return column.
func (s Series) Returns() []float64 {
	out := make([]float64, len(s))
	for i, r := range s {
		out[i] = r.LogReturn
	}
	return out
}

// IndexOf returns the position of the record on the given date, or -1.
func (s Series) IndexOf(date time.Time) int {
	for i, r := range s {
		if r.Date.Equal(date) {
			return i
		}
	}
	return -1
}
