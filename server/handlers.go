package server

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/rustyeddy/breakpoint/journal"
	"github.com/rustyeddy/breakpoint/series"
)

// Version reported by the health endpoint.
const Version = "1.0.0"

// JSON field names follow the persisted column contract so the dashboard
// can consume either the CSV artifacts or this API unchanged.

type priceRow struct {
	Date      string  `json:"Date"`
	Price     float64 `json:"Price"`
	LogReturn float64 `json:"Log_Return"`
}

type changePointRow struct {
	ChangePoint string `json:"Change_Point"`
}

type impactRow struct {
	ChangePoint         string   `json:"Change_Point"`
	Event               string   `json:"Event"`
	EventDate           string   `json:"Event_Date"`
	DaysDiff            int64    `json:"Days_Diff"`
	PriceChangePct      *float64 `json:"Price_Change_Pct"`
	VolatilityChangePct *float64 `json:"Volatility_Change_Pct"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"version": Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// handleData serves the combined dashboard payload: prices, change points,
// event impacts, and counts. Missing artifacts degrade to empty lists the
// way the original backend behaved, rather than failing the whole payload.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	prices := s.loadPrices()
	changePoints := s.loadChangePoints()
	impacts := s.loadImpacts()

	writeJSON(w, http.StatusOK, map[string]any{
		"prices":       prices,
		"changePoints": changePoints,
		"events":       impacts,
		"meta": map[string]any{
			"prices_count":        len(prices),
			"change_points_count": len(changePoints),
			"events_count":        len(impacts),
			"generated_at":        time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func (s *Server) handleChangePoints(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.loadChangePoints())
}

func (s *Server) handleImpacts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.loadImpacts())
}

// handleDebug reports where the server is looking for its artifacts and
// whether they exist.
func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"prices":        fileInfo(s.config.PricesFile),
		"change_points": fileInfo(s.config.ChangePointsFile),
		"event_impacts": fileInfo(s.config.ImpactsFile),
	})
}

func (s *Server) loadPrices() []priceRow {
	if s.config.PricesFile == "" {
		return []priceRow{}
	}
	res, err := series.LoadCSV(s.config.PricesFile)
	if err != nil {
		s.log.Error().Err(err).Str("path", s.config.PricesFile).Msg("load prices artifact")
		return []priceRow{}
	}
	rows := make([]priceRow, len(res.Series))
	for i, rec := range res.Series {
		rows[i] = priceRow{
			Date:      rec.Date.Format(journal.DateFormat),
			Price:     rec.Price,
			LogReturn: rec.LogReturn,
		}
	}
	return rows
}

func (s *Server) loadChangePoints() []changePointRow {
	recs, err := journal.ReadChangePoints(s.config.ChangePointsFile)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Error().Err(err).Str("path", s.config.ChangePointsFile).Msg("load change points artifact")
		}
		return []changePointRow{}
	}
	rows := make([]changePointRow, len(recs))
	for i, rec := range recs {
		rows[i] = changePointRow{ChangePoint: rec.Date.Format(journal.DateFormat)}
	}
	return rows
}

func (s *Server) loadImpacts() []impactRow {
	recs, err := journal.ReadImpacts(s.config.ImpactsFile)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Error().Err(err).Str("path", s.config.ImpactsFile).Msg("load impacts artifact")
		}
		return []impactRow{}
	}
	rows := make([]impactRow, len(recs))
	for i, rec := range recs {
		row := impactRow{
			ChangePoint: rec.ChangePoint.Format(journal.DateFormat),
			Event:       rec.Event,
			EventDate:   rec.EventDate.Format(journal.DateFormat),
			DaysDiff:    rec.DaysDiff,
		}
		if rec.PriceDefined {
			v := rec.PriceChangePct
			row.PriceChangePct = &v
		}
		if rec.VolDefined {
			v := rec.VolChangePct
			row.VolatilityChangePct = &v
		}
		rows[i] = row
	}
	return rows
}

func fileInfo(path string) map[string]any {
	info := map[string]any{"path": path, "exists": false}
	if path == "" {
		return info
	}
	if st, err := os.Stat(path); err == nil {
		info["exists"] = true
		info["size"] = st.Size()
	}
	return info
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
