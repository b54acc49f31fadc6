package server

import (
	"net/http"
	"time"

	"github.com/contaluz/contaluz/pkg/log"
	"github.com/contaluz/contaluz/pkg/projector"
	"github.com/contaluz/contaluz/pkg/types"
)

func (s *Server) handleRecharge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount float64 `json:"amount"`
	}
	if !decodeJSON(w, r, &req, maxBodyBytes) {
		return
	}
	rec, err := s.tracker.Recharge(r.Context(), req.Amount)
	if err != nil {
		writeTrackerError(w, r, err)
		return
	}
	writeJSON(w, rec)
}

func (s *Server) handleListRecharges(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.tracker.Recharges())
}

// SyncRes is the response type for Sync
type SyncRes struct {
	Result     projector.SyncResult `json:"result"`
	Projection types.Projection     `json:"projection"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.syncDelay > 0 {
		timer := time.NewTimer(s.syncDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Ctx(ctx).InfoContext(ctx, "sync canceled")
			writeJSONError(w, "sync canceled", http.StatusServiceUnavailable)
			return
		case <-timer.C:
		}
	}
	res := s.tracker.Sync(ctx)
	writeJSON(w, SyncRes{
		Result:     res,
		Projection: s.tracker.Projection(),
	})
}

func (s *Server) handleSetBalance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Balance float64 `json:"balance"`
	}
	if !decodeJSON(w, r, &req, maxBodyBytes) {
		return
	}
	if err := s.tracker.SetBalance(r.Context(), req.Balance); err != nil {
		writeTrackerError(w, r, err)
		return
	}
	writeJSON(w, s.tracker.Projection())
}
