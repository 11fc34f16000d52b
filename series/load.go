package series

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
)

// Raw price files arrive with several date spellings; the loader tries each
// in order and drops rows that match none.
var dateFormats = []string{
	"02-Jan-06",   // 20-May-87
	"Jan 2, 2006", // Apr 22, 2020
	"2006-01-02",  // 2020-04-22
	"01/02/2006",  // 04/22/2020
}

// LoadResult is the cleaned series plus loader bookkeeping.
type LoadResult struct {
	Series       Series
	DroppedDates int // rows removed because the date failed to parse
	Interpolated int // prices filled by linear interpolation
}

// ParseDate parses a date cell in any of the supported formats.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, f := range dateFormats {
		if t, err := time.Parse(f, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// LoadCSV reads a raw price file with Date and Price columns, normalizes
// dates, interpolates missing prices, and computes log returns. Files ending
// in .xz or .gz are decompressed transparently. The first observation has no
// return and is dropped from the result.
func LoadCSV(path string) (LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return LoadResult{}, fmt.Errorf("open prices: %w", err)
	}
	defer f.Close()

	r, err := decompress(path, f)
	if err != nil {
		return LoadResult{}, err
	}
	return Load(r)
}

// Load is LoadCSV over an already-open reader.
func Load(r io.Reader) (LoadResult, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return LoadResult{}, &DataError{Reason: "empty price file"}
	}
	dateCol, priceCol := columnIndex(header, "Date"), columnIndex(header, "Price")
	if dateCol < 0 || priceCol < 0 {
		return LoadResult{}, &DataError{Reason: "price file must contain Date and Price columns"}
	}

	type raw struct {
		date  time.Time
		price float64 // NaN when missing
	}
	var (
		rows    []raw
		dropped int
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return LoadResult{}, fmt.Errorf("read prices: %w", err)
		}
		date, err := ParseDate(rec[dateCol])
		if err != nil {
			dropped++
			continue
		}
		price := math.NaN()
		if cell := strings.TrimSpace(rec[priceCol]); cell != "" {
			if v, err := strconv.ParseFloat(cell, 64); err == nil {
				price = v
			}
		}
		rows = append(rows, raw{date: date, price: price})
	}
	if len(rows) == 0 {
		return LoadResult{}, &DataError{Reason: "no valid price rows"}
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].date.Before(rows[j].date) })

	// Fill missing prices by linear interpolation in time, then force
	// positivity so the log transform is defined.
	interpolated := 0
	for i := range rows {
		if !math.IsNaN(rows[i].price) {
			continue
		}
		lo, hi := -1, -1
		for j := i - 1; j >= 0; j-- {
			if !math.IsNaN(rows[j].price) {
				lo = j
				break
			}
		}
		for j := i + 1; j < len(rows); j++ {
			if !math.IsNaN(rows[j].price) {
				hi = j
				break
			}
		}
		switch {
		case lo >= 0 && hi >= 0:
			span := rows[hi].date.Sub(rows[lo].date)
			frac := float64(rows[i].date.Sub(rows[lo].date)) / float64(span)
			rows[i].price = rows[lo].price + frac*(rows[hi].price-rows[lo].price)
		case lo >= 0:
			rows[i].price = rows[lo].price
		case hi >= 0:
			rows[i].price = rows[hi].price
		default:
			return LoadResult{}, &DataError{Reason: "no numeric prices in file"}
		}
		interpolated++
	}
	for i := range rows {
		if rows[i].price <= 0 {
			rows[i].price = math.Abs(rows[i].price)
		}
	}

	out := make(Series, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		if rows[i].price <= 0 || rows[i-1].price <= 0 {
			return LoadResult{}, &DataError{Reason: fmt.Sprintf("non-positive price on %s", rows[i].date.Format("2006-01-02"))}
		}
		if rows[i].date.Equal(rows[i-1].date) {
			// Keep the first row for a duplicated date.
			continue
		}
		out = append(out, Record{
			Date:      rows[i].date,
			Price:     rows[i].price,
			LogReturn: math.Log(rows[i].price) - math.Log(rows[i-1].price),
		})
	}

	res := LoadResult{Series: out, DroppedDates: dropped, Interpolated: interpolated}
	if err := out.Validate(); err != nil {
		return LoadResult{}, err
	}
	return res, nil
}

// LoadEvents reads a Date,Event CSV into a date-sorted event list.
func LoadEvents(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open events: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, &DataError{Reason: "empty event file"}
	}
	dateCol, descCol := columnIndex(header, "Date"), columnIndex(header, "Event")
	if dateCol < 0 || descCol < 0 {
		return nil, &DataError{Reason: "event file must contain Date and Event columns"}
	}

	var events []Event
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read events: %w", err)
		}
		date, err := ParseDate(rec[dateCol])
		if err != nil {
			continue
		}
		events = append(events, Event{Date: date, Description: strings.TrimSpace(rec[descCol])})
	}

	sort.Slice(events, func(i, j int) bool { return events[i].Date.Before(events[j].Date) })
	return events, nil
}

func decompress(path string, f *os.File) (io.Reader, error) {
	switch {
	case strings.HasSuffix(path, ".xz"):
		r, err := xz.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("xz reader: %w", err)
		}
		return r, nil
	case strings.HasSuffix(path, ".gz"):
		r, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		return r, nil
	default:
		return f, nil
	}
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}
