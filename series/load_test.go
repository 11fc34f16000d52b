package series

import (
	"math"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDateFormats(t *testing.T) {
	t.Parallel()

	cases := map[string]time.Time{
		"20-May-87":    day(1987, 5, 20),
		"Apr 22, 2020": day(2020, 4, 22),
		"2020-04-22":   day(2020, 4, 22),
		"04/22/2020":   day(2020, 4, 22),
	}
	for in, want := range cases {
		got, err := ParseDate(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseDate("not a date")
	assert.Error(t, err)
}

func TestLoadComputesReturns(t *testing.T) {
	t.Parallel()

	csv := "Date,Price\n2020-01-01,100\n2020-01-02,110\n2020-01-03,121\n"
	res, err := Load(strings.NewReader(csv))
	assert.NoError(t, err)

	// First raw row is consumed computing the first return.
	assert.Len(t, res.Series, 2)
	assert.Equal(t, day(2020, 1, 2), res.Series[0].Date)
	assert.InDelta(t, math.Log(1.1), res.Series[0].LogReturn, 1e-12)
	assert.InDelta(t, math.Log(1.1), res.Series[1].LogReturn, 1e-12)
}

func TestLoadSortsAndDropsBadDates(t *testing.T) {
	t.Parallel()

	csv := "Date,Price\n2020-01-03,120\nbogus,50\n2020-01-01,100\n2020-01-02,110\n"
	res, err := Load(strings.NewReader(csv))
	assert.NoError(t, err)

	assert.Equal(t, 1, res.DroppedDates)
	assert.Len(t, res.Series, 2)
	assert.True(t, res.Series[0].Date.Before(res.Series[1].Date))
}

func TestLoadInterpolatesMissingPrice(t *testing.T) {
	t.Parallel()

	csv := "Date,Price\n2020-01-01,100\n2020-01-02,\n2020-01-03,120\n"
	res, err := Load(strings.NewReader(csv))
	assert.NoError(t, err)

	assert.Equal(t, 1, res.Interpolated)
	// Midpoint in time between 100 and 120.
	assert.InDelta(t, 110, res.Series[0].Price, 1e-9)
}

func TestLoadMixedFormats(t *testing.T) {
	t.Parallel()

	csv := "Date,Price\n\"Apr 22, 2020\",25.57\n04/23/2020,26.10\n2020-04-24,27.00\n"
	res, err := Load(strings.NewReader(csv))
	assert.NoError(t, err)
	assert.Len(t, res.Series, 2)
	assert.Equal(t, day(2020, 4, 23), res.Series[0].Date)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	var de *DataError

	_, err := Load(strings.NewReader(""))
	assert.ErrorAs(t, err, &de)

	_, err = Load(strings.NewReader("Foo,Bar\n1,2\n"))
	assert.ErrorAs(t, err, &de)

	_, err = Load(strings.NewReader("Date,Price\nbogus,1\nworse,2\n"))
	assert.ErrorAs(t, err, &de)
}

func TestLoadEventsSorted(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := dir + "/events.csv"
	content := "Date,Event\n2020-06-01,B\n2020-04-01,A\n"
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	events, err := LoadEvents(path)
	assert.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, "A", events[0].Description)
	assert.Equal(t, day(2020, 4, 1), events[0].Date)
}
