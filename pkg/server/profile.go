package server

import (
	"log/slog"
	"net/http"

	"github.com/contaluz/contaluz/pkg/log"
)

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.tracker.Profile())
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	// fields missing from the request keep their current values
	p := s.tracker.Profile()
	if !decodeJSON(w, r, &p, maxBodyBytes) {
		return
	}
	updated, err := s.tracker.UpdateProfile(r.Context(), p)
	if err != nil {
		writeTrackerError(w, r, err)
		return
	}
	writeJSON(w, updated)
}

func (s *Server) handleSetNotifications(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if !decodeJSON(w, r, &req, maxBodyBytes) {
		return
	}
	writeJSON(w, s.tracker.SetNotifications(r.Context(), req.Enabled))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if subject := subjectFromContext(ctx); subject != "" {
		log.Ctx(ctx).InfoContext(ctx, "household reset requested", slog.String("by", subject))
	}
	if err := s.tracker.Reset(ctx); err != nil {
		writeTrackerError(w, r, err)
		return
	}
	writeJSON(w, s.tracker.Snapshot())
}
