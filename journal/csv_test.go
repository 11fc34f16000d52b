package journal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestCSV(t *testing.T) (*CSVJournal, string, string) {
	t.Helper()

	dir := t.TempDir()
	cps := filepath.Join(dir, "change_points.csv")
	imps := filepath.Join(dir, "event_impacts.csv")

	j, err := NewCSV(cps, imps)
	assert.NoError(t, err)

	return j, cps, imps
}

func TestCSVHeaders(t *testing.T) {
	t.Parallel()

	j, cps, imps := newTestCSV(t)
	assert.NoError(t, j.Close())

	cpData, err := os.ReadFile(cps)
	assert.NoError(t, err)
	assert.Equal(t, "Change_Point", strings.TrimSpace(string(cpData)))

	impData, err := os.ReadFile(imps)
	assert.NoError(t, err)
	assert.Equal(t,
		"Change_Point,Event,Event_Date,Days_Diff,Price_Change_Pct,Volatility_Change_Pct",
		strings.TrimSpace(string(impData)))
}

func TestCSVRoundTrip(t *testing.T) {
	t.Parallel()

	j, cps, imps := newTestCSV(t)

	cp := time.Date(2020, 4, 15, 0, 0, 0, 0, time.UTC)
	ev := time.Date(2020, 4, 1, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, j.RecordChangePoint(ChangePointRecord{Date: cp, DrawCount: 1200}))
	assert.NoError(t, j.RecordImpact(ImpactRecord{
		ChangePoint:    cp,
		Event:          "OPEC cut",
		EventDate:      ev,
		DaysDiff:       14,
		PriceChangePct: -12.5,
		PriceDefined:   true,
		VolChangePct:   40.25,
		VolDefined:     true,
	}))
	assert.NoError(t, j.Close())

	cpRecs, err := ReadChangePoints(cps)
	assert.NoError(t, err)
	assert.Len(t, cpRecs, 1)
	assert.Equal(t, cp, cpRecs[0].Date)

	impRecs, err := ReadImpacts(imps)
	assert.NoError(t, err)
	assert.Len(t, impRecs, 1)
	assert.Equal(t, "OPEC cut", impRecs[0].Event)
	assert.Equal(t, int64(14), impRecs[0].DaysDiff)
	assert.InDelta(t, -12.5, impRecs[0].PriceChangePct, 1e-9)
	assert.True(t, impRecs[0].PriceDefined)
	assert.True(t, impRecs[0].VolDefined)
}

func TestCSVUndefinedPercentagesAreEmptyCells(t *testing.T) {
	t.Parallel()

	j, _, imps := newTestCSV(t)

	cp := time.Date(2020, 4, 15, 0, 0, 0, 0, time.UTC)
	assert.NoError(t, j.RecordImpact(ImpactRecord{
		ChangePoint: cp,
		Event:       "A",
		EventDate:   cp.AddDate(0, 0, -3),
		DaysDiff:    3,
		// Both percentages undefined: series boundary case.
	}))
	assert.NoError(t, j.Close())

	data, err := os.ReadFile(imps)
	assert.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 2)
	assert.Equal(t, "2020-04-15,A,2020-04-12,3,,", lines[1])

	recs, err := ReadImpacts(imps)
	assert.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.False(t, recs[0].PriceDefined)
	assert.False(t, recs[0].VolDefined)
	assert.Zero(t, recs[0].PriceChangePct)
}

func TestCSVRecordRunNoOp(t *testing.T) {
	t.Parallel()

	j, _, _ := newTestCSV(t)
	assert.NoError(t, j.RecordRun(RunRecord{RunID: "X"}))
	assert.NoError(t, j.Close())
}

func TestNewRunIDMonotonic(t *testing.T) {
	t.Parallel()

	a, b := NewRunID(), NewRunID()
	assert.NotEqual(t, a, b)
	assert.Less(t, a, b)
	assert.Len(t, a, 26)
}
