package server

import (
	"net/http"

	"github.com/contaluz/contaluz/pkg/types"
)

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.tracker.Snapshot())
}

func (s *Server) handleGetProjection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.tracker.Projection())
}

// CatalogRes is the response type for GetCatalog
type CatalogRes struct {
	Categories       []string            `json:"categories"`
	Presets          []types.Preset      `json:"presets"`
	ResidenceTypes   []string            `json:"residenceTypes"`
	ResidenceConfigs map[string][]string `json:"residenceConfigs"`
	Provinces        []string            `json:"provinces"`
}

func (s *Server) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, CatalogRes{
		Categories:       types.Categories,
		Presets:          types.Presets,
		ResidenceTypes:   types.ResidenceTypes,
		ResidenceConfigs: types.ResidenceConfigs,
		Provinces:        types.Provinces,
	})
}
