package server

import (
	"net/http"

	"github.com/contaluz/contaluz/pkg/advisor"
)

func (s *Server) handleTips(w http.ResponseWriter, r *http.Request) {
	tips, err := s.advisor.EnergyTips(r.Context(), s.tracker.Appliances(), s.tracker.Profile())
	if err != nil {
		writeTrackerError(w, r, err)
		return
	}
	writeJSON(w, tips)
}

// InsightRes is the response type for Insight
type InsightRes struct {
	Insight                string  `json:"insight"`
	ConsumptionDiffPercent float64 `json:"consumptionDiffPercent"`
}

func (s *Server) handleInsight(w http.ResponseWriter, r *http.Request) {
	diff := s.tracker.Projection().ConsumptionDiffPercent
	insight, err := s.advisor.MonthlyInsight(r.Context(), s.tracker.Appliances(), s.tracker.Profile(), diff)
	if err != nil {
		writeTrackerError(w, r, err)
		return
	}
	writeJSON(w, InsightRes{
		Insight:                insight,
		ConsumptionDiffPercent: diff,
	})
}

// StrategyReq is the request type for Strategy
type StrategyReq struct {
	Amount float64 `json:"amount"`
	Days   float64 `json:"days"`
}

// StrategyRes is the response type for Strategy. Strategy is null when none
// could be produced.
type StrategyRes struct {
	Strategy *advisor.Strategy `json:"strategy"`
}

func (s *Server) handleStrategy(w http.ResponseWriter, r *http.Request) {
	var req StrategyReq
	if !decodeJSON(w, r, &req, maxBodyBytes) {
		return
	}
	if req.Amount <= 0 || req.Days <= 0 {
		writeJSONError(w, "amount and days must be positive", http.StatusBadRequest)
		return
	}
	strategy, err := s.advisor.RechargeStrategy(r.Context(), req.Amount, req.Days, s.tracker.Appliances(), s.tracker.Profile())
	if err != nil {
		writeTrackerError(w, r, err)
		return
	}
	writeJSON(w, StrategyRes{Strategy: strategy})
}

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := advisor.LocationQuery{
		Level:    advisor.LocationLevel(q.Get("level")),
		Parent:   q.Get("parent"),
		Province: q.Get("province"),
		City:     q.Get("city"),
		District: q.Get("district"),
	}
	if !query.Level.Valid() || query.Parent == "" {
		writeJSONError(w, "level and parent are required", http.StatusBadRequest)
		return
	}
	list, err := s.advisor.LocationSuggestions(r.Context(), query)
	if err != nil {
		writeTrackerError(w, r, err)
		return
	}
	writeJSON(w, list)
}
