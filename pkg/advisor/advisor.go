// Package advisor talks to a generative text service for location
// suggestions, saving tips, recharge strategies and appliance plate reading.
// Nothing in the projection or alerting depends on it.
package advisor

import (
	"context"
	"errors"
	"fmt"

	"github.com/contaluz/contaluz/pkg/tariff"
	"github.com/contaluz/contaluz/pkg/types"
	"github.com/levenlabs/go-lflag"
)

// ErrPlateUnreadable is returned when an appliance plate could not be read.
var ErrPlateUnreadable = errors.New("appliance plate unreadable")

// PlateUnreadableMessage is shown to the household when ErrPlateUnreadable is
// returned.
const PlateUnreadableMessage = "Não foi possível ler a placa. Tente preencher manualmente."

// LocationLevel is the administrative level of a location suggestion.
type LocationLevel string

const (
	LocationCity         LocationLevel = "city"
	LocationDistrict     LocationLevel = "district"
	LocationNeighborhood LocationLevel = "neighborhood"
)

// Valid reports whether l is a known level.
func (l LocationLevel) Valid() bool {
	switch l {
	case LocationCity, LocationDistrict, LocationNeighborhood:
		return true
	}
	return false
}

// LocationQuery asks for places of Level that belong to Parent.
type LocationQuery struct {
	Level    LocationLevel `json:"level"`
	Parent   string        `json:"parent"`
	Province string        `json:"province,omitempty"`
	City     string        `json:"city,omitempty"`
	District string        `json:"district,omitempty"`
}

// Tip is a single energy saving suggestion.
type Tip struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	EstimatedSaving string `json:"estimatedSaving"`
}

// Reduction suggests using an appliance less.
type Reduction struct {
	Name    string `json:"name"`
	NewTime string `json:"newTime"`
	Reason  string `json:"reason"`
}

// Strategy is a plan for making a recharge last a number of days.
type Strategy struct {
	Explanation string      `json:"explanation"`
	StopUsing   []string    `json:"stopUsing"`
	ReduceUsage []Reduction `json:"reduceUsage"`
	DailyPlan   string      `json:"dailyPlan"`
	// Budget is computed locally from the tariff, not by the service.
	Budget tariff.Budget `json:"budget"`
}

// PlateReading is what was read off an appliance's specification plate.
type PlateReading struct {
	PowerWatts    float64 `json:"power"`
	Voltage       string  `json:"voltage,omitempty"`
	Model         string  `json:"model,omitempty"`
	SuggestedName string  `json:"suggestedName,omitempty"`
}

// Advisor is the generative text collaborator.
type Advisor interface {
	LocationSuggestions(ctx context.Context, q LocationQuery) ([]string, error)
	EnergyTips(ctx context.Context, appliances []types.Appliance, profile types.Profile) ([]Tip, error)
	// RechargeStrategy returns a nil Strategy when none could be produced.
	RechargeStrategy(ctx context.Context, amount, days float64, appliances []types.Appliance, profile types.Profile) (*Strategy, error)
	MonthlyInsight(ctx context.Context, appliances []types.Appliance, profile types.Profile, diffPercent float64) (string, error)
	AnalyzePlate(ctx context.Context, image []byte, mimeType string) (PlateReading, error)
}

// Configured sets up the Advisor based on flags. Without an API key every
// call returns its fallback value.
func Configured() Advisor {
	g := configuredGemini()

	var p struct{ Advisor }

	lflag.Do(func() {
		if g.apiKey == "" {
			p.Advisor = NewFallback(nil)
			return
		}
		if err := g.Validate(); err != nil {
			panic(fmt.Sprintf("advisor validation failed: %v", err))
		}
		if err := g.Init(context.Background()); err != nil {
			panic(fmt.Sprintf("advisor init failed: %v", err))
		}
		p.Advisor = NewFallback(g)
	})

	return &p
}

func activeAppliances(appliances []types.Appliance) []types.Appliance {
	active := make([]types.Appliance, 0, len(appliances))
	for _, a := range appliances {
		if a.IsActive {
			active = append(active, a)
		}
	}
	return active
}
