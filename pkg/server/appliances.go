package server

import (
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"

	"github.com/contaluz/contaluz/pkg/advisor"
	"github.com/contaluz/contaluz/pkg/log"
	"github.com/contaluz/contaluz/pkg/types"
)

func (s *Server) handleListAppliances(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.tracker.Appliances())
}

func (s *Server) handleAddAppliance(w http.ResponseWriter, r *http.Request) {
	var fields types.ApplianceFields
	if !decodeJSON(w, r, &fields, maxBodyBytes) {
		return
	}
	a, err := s.tracker.AddAppliance(r.Context(), fields)
	if err != nil {
		writeTrackerError(w, r, err)
		return
	}
	writeJSON(w, a)
}

func (s *Server) handleAddPreset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req, maxBodyBytes) {
		return
	}
	a, err := s.tracker.AddPreset(r.Context(), req.Name)
	if err != nil {
		writeTrackerError(w, r, err)
		return
	}
	writeJSON(w, a)
}

func (s *Server) handleUpdateAppliance(w http.ResponseWriter, r *http.Request) {
	var fields types.ApplianceFields
	if !decodeJSON(w, r, &fields, maxBodyBytes) {
		return
	}
	a, err := s.tracker.UpdateAppliance(r.Context(), r.PathValue("id"), fields)
	if err != nil {
		writeTrackerError(w, r, err)
		return
	}
	writeJSON(w, a)
}

func (s *Server) handleRemoveAppliance(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.RemoveAppliance(r.Context(), r.PathValue("id")); err != nil {
		writeTrackerError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleAppliance(w http.ResponseWriter, r *http.Request) {
	a, err := s.tracker.ToggleAppliance(r.Context(), r.PathValue("id"))
	if err != nil {
		writeTrackerError(w, r, err)
		return
	}
	writeJSON(w, a)
}

// scanReq carries a base64 encoded photo of an appliance plate.
type scanReq struct {
	Image    string `json:"image"`
	MimeType string `json:"mimeType"`
}

func (s *Server) handleScanPlate(w http.ResponseWriter, r *http.Request) {
	var req scanReq
	if !decodeJSON(w, r, &req, maxImageBytes) {
		return
	}
	image, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil || len(image) == 0 {
		writeJSONError(w, "image must be base64 encoded", http.StatusBadRequest)
		return
	}

	reading, err := s.advisor.AnalyzePlate(r.Context(), image, req.MimeType)
	if err != nil {
		if errors.Is(err, advisor.ErrPlateUnreadable) {
			writeJSONError(w, advisor.PlateUnreadableMessage, http.StatusUnprocessableEntity)
			return
		}
		log.Ctx(r.Context()).ErrorContext(r.Context(), "failed to analyze plate", slog.Any("error", err))
		writeJSONError(w, "failed to analyze plate", http.StatusBadGateway)
		return
	}
	writeJSON(w, reading)
}
