package server

import (
	"net/http"
)

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("unread") == "true" {
		writeJSON(w, s.tracker.UnreadAlerts())
		return
	}
	writeJSON(w, s.tracker.Alerts())
}

func (s *Server) handleMarkAlertRead(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.MarkAlertRead(r.PathValue("id")); err != nil {
		writeTrackerError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveAlert(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.RemoveAlert(r.PathValue("id")); err != nil {
		writeTrackerError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearAlerts(w http.ResponseWriter, r *http.Request) {
	s.tracker.ClearAlerts()
	w.WriteHeader(http.StatusNoContent)
}
