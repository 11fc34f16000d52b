package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/breakpoint/journal"
)

func newTestServer(t *testing.T, config Config) *Server {
	t.Helper()
	return New(config, zerolog.Nop())
}

// writeArtifacts persists a small set of change points and impacts the way
// the pipeline does, returning the server config that points at them.
func writeArtifacts(t *testing.T) Config {
	t.Helper()

	dir := t.TempDir()
	config := Config{
		ChangePointsFile: filepath.Join(dir, "change_points.csv"),
		ImpactsFile:      filepath.Join(dir, "event_impacts.csv"),
	}

	j, err := journal.NewCSV(config.ChangePointsFile, config.ImpactsFile)
	assert.NoError(t, err)

	cp := time.Date(2020, 4, 15, 0, 0, 0, 0, time.UTC)
	assert.NoError(t, j.RecordChangePoint(journal.ChangePointRecord{Date: cp, DrawCount: 1200}))
	assert.NoError(t, j.RecordChangePoint(journal.ChangePointRecord{Date: cp.AddDate(0, 0, 30), DrawCount: 800}))
	assert.NoError(t, j.RecordImpact(journal.ImpactRecord{
		ChangePoint:    cp,
		Event:          "OPEC cut",
		EventDate:      cp.AddDate(0, 0, -14),
		DaysDiff:       14,
		PriceChangePct: -12.5,
		PriceDefined:   true,
		// Volatility undefined.
	}))
	assert.NoError(t, j.Close())

	return config
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Config{})
	rec := get(t, s, "/api/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var body map[string]any
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, Version, body["version"])
}

func TestChangePoints(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, writeArtifacts(t))
	rec := get(t, s, "/api/change-points")
	assert.Equal(t, http.StatusOK, rec.Code)

	var rows []map[string]any
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	assert.Len(t, rows, 2)
	assert.Equal(t, "2020-04-15", rows[0]["Change_Point"])
}

func TestEventImpacts(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, writeArtifacts(t))
	rec := get(t, s, "/api/event-impacts")
	assert.Equal(t, http.StatusOK, rec.Code)

	var rows []map[string]any
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	assert.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "OPEC cut", row["Event"])
	assert.Equal(t, "2020-04-01", row["Event_Date"])
	assert.Equal(t, float64(14), row["Days_Diff"])
	assert.InDelta(t, -12.5, row["Price_Change_Pct"].(float64), 1e-9)
	// Undefined percentages serialize as null, never zero.
	assert.Nil(t, row["Volatility_Change_Pct"])
}

func TestDataCombinedPayload(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, writeArtifacts(t))
	rec := get(t, s, "/api/data")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Prices       []map[string]any `json:"prices"`
		ChangePoints []map[string]any `json:"changePoints"`
		Events       []map[string]any `json:"events"`
		Meta         map[string]any   `json:"meta"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	// No prices artifact configured, so the list is empty but present.
	assert.Empty(t, body.Prices)
	assert.Len(t, body.ChangePoints, 2)
	assert.Len(t, body.Events, 1)
	assert.Equal(t, float64(2), body.Meta["change_points_count"])
	assert.Equal(t, float64(1), body.Meta["events_count"])
}

func TestMissingArtifactsServeEmptyLists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := newTestServer(t, Config{
		ChangePointsFile: filepath.Join(dir, "nope.csv"),
		ImpactsFile:      filepath.Join(dir, "nope2.csv"),
	})

	rec := get(t, s, "/api/change-points")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", rec.Body.String()[:2])

	rec = get(t, s, "/api/event-impacts")
	assert.Equal(t, http.StatusOK, rec.Code)

	var rows []map[string]any
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	assert.Empty(t, rows)
}

func TestDebugReportsArtifactPresence(t *testing.T) {
	t.Parallel()

	config := writeArtifacts(t)
	s := newTestServer(t, config)
	rec := get(t, s, "/api/debug")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]map[string]any
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["change_points"]["exists"])
	assert.Equal(t, false, body["prices"]["exists"])
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Config{})
	req := httptest.NewRequest(http.MethodOptions, "/api/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Config{})
	get(t, s, "/api/health")

	rec := get(t, s, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "breakpoint_http_requests_total")
}
