package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// Column layouts are the publisher's contract; the names are stable.
var (
	changePointHeader = []string{"Change_Point"}
	impactHeader      = []string{"Change_Point", "Event", "Event_Date", "Days_Diff", "Price_Change_Pct", "Volatility_Change_Pct"}
)

type CSVJournal struct {
	changePoints *csv.Writer
	impacts      *csv.Writer
	cf, imf      *os.File
}

func NewCSV(changePointsPath, impactsPath string) (*CSVJournal, error) {
	cf, err := os.Create(changePointsPath)
	if err != nil {
		return nil, err
	}
	imf, err := os.Create(impactsPath)
	if err != nil {
		cf.Close()
		return nil, err
	}

	cw := csv.NewWriter(cf)
	iw := csv.NewWriter(imf)

	if err := cw.Write(changePointHeader); err != nil {
		return nil, err
	}
	if err := iw.Write(impactHeader); err != nil {
		return nil, err
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	iw.Flush()
	if err := iw.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{cw, iw, cf, imf}, nil
}

// RecordRun is a no-op for CSV output; run metadata lives in the SQLite
// journal.
func (j *CSVJournal) RecordRun(RunRecord) error { return nil }

func (j *CSVJournal) RecordChangePoint(c ChangePointRecord) error {
	j.changePoints.Write([]string{c.Date.Format(DateFormat)})
	j.changePoints.Flush()
	return j.changePoints.Error()
}

func (j *CSVJournal) RecordImpact(r ImpactRecord) error {
	err := j.impacts.Write([]string{
		r.ChangePoint.Format(DateFormat),
		r.Event,
		r.EventDate.Format(DateFormat),
		strconv.FormatInt(r.DaysDiff, 10),
		pct(r.PriceChangePct, r.PriceDefined),
		pct(r.VolChangePct, r.VolDefined),
	})
	if err != nil {
		return err
	}

	j.impacts.Flush()
	return j.impacts.Error()
}

func (j *CSVJournal) Close() error {
	j.changePoints.Flush()
	if err := j.changePoints.Error(); err != nil {
		return err
	}
	j.impacts.Flush()
	if err := j.impacts.Error(); err != nil {
		return err
	}

	if err := j.cf.Close(); err != nil {
		return err
	}
	if err := j.imf.Close(); err != nil {
		return err
	}
	return nil
}

// pct formats a percentage cell; an undefined value becomes an empty cell,
// never zero.
func pct(v float64, defined bool) string {
	if !defined {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// ReadChangePoints loads a change point artifact back into records.
func ReadChangePoints(path string) ([]ChangePointRecord, error) {
	rows, err := readCSV(path, changePointHeader)
	if err != nil {
		return nil, err
	}
	out := make([]ChangePointRecord, 0, len(rows))
	for _, row := range rows {
		date, err := parseDate(row[0])
		if err != nil {
			return nil, err
		}
		out = append(out, ChangePointRecord{Date: date})
	}
	return out, nil
}

// ReadImpacts loads an event impact artifact back into records. Empty
// percentage cells read back as undefined.
func ReadImpacts(path string) ([]ImpactRecord, error) {
	rows, err := readCSV(path, impactHeader)
	if err != nil {
		return nil, err
	}
	out := make([]ImpactRecord, 0, len(rows))
	for _, row := range rows {
		cp, err := parseDate(row[0])
		if err != nil {
			return nil, err
		}
		evDate, err := parseDate(row[2])
		if err != nil {
			return nil, err
		}
		days, err := strconv.ParseInt(row[3], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad Days_Diff %q: %w", row[3], err)
		}
		rec := ImpactRecord{
			ChangePoint: cp,
			Event:       row[1],
			EventDate:   evDate,
			DaysDiff:    days,
		}
		if row[4] != "" {
			if rec.PriceChangePct, err = strconv.ParseFloat(row[4], 64); err != nil {
				return nil, fmt.Errorf("bad Price_Change_Pct %q: %w", row[4], err)
			}
			rec.PriceDefined = true
		}
		if row[5] != "" {
			if rec.VolChangePct, err = strconv.ParseFloat(row[5], 64); err != nil {
				return nil, fmt.Errorf("bad Volatility_Change_Pct %q: %w", row[5], err)
			}
			rec.VolDefined = true
		}
		out = append(out, rec)
	}
	return out, nil
}

func readCSV(path string, header []string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	first, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(first) != len(header) {
		return nil, fmt.Errorf("%s: expected %d columns, have %d", path, len(header), len(first))
	}

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q: %w", s, err)
	}
	return t, nil
}
