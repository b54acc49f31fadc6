package types

import (
	"encoding/json"
	"math"
	"time"
)

// AlertType is the severity of an alert.
type AlertType string

const (
	AlertTypeInfo    AlertType = "info"
	AlertTypeWarning AlertType = "warning"
	AlertTypeDanger  AlertType = "danger"
)

// Stable ids for rule alerts. A rule alert with one of these ids is never
// inserted twice while a previous occurrence exists.
const (
	AlertIDAutonomyLow     = "autonomy-low"
	AlertIDHighConsumption = "high-consumption"
)

// Alert is a user-visible notice raised by a rule or an event.
type Alert struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        AlertType `json:"type"`
	Date        time.Time `json:"date"`
	IsRead      bool      `json:"isRead"`
}

// Days is a count of autonomy days. +Inf means the balance lasts indefinitely
// and is encoded as null in JSON.
type Days float64

// Indefinite reports whether the days value is unbounded.
func (d Days) Indefinite() bool {
	return math.IsInf(float64(d), 1)
}

// MarshalJSON implements json.Marshaler.
func (d Days) MarshalJSON() ([]byte, error) {
	if math.IsInf(float64(d), 0) || math.IsNaN(float64(d)) {
		return []byte("null"), nil
	}
	return json.Marshal(float64(d))
}

// Projection is the derived state computed from the ledger, tariff and balance.
// It is never stored.
type Projection struct {
	Balance                float64   `json:"balance"`
	DailyKWh               float64   `json:"dailyKWh"`
	DailyCost              float64   `json:"dailyCost"`
	AutonomyDays           Days      `json:"autonomyDays"`
	Indefinite             bool      `json:"indefinite"`
	ConsumptionDiffPercent float64   `json:"consumptionDiffPercent"`
	LastUpdate             time.Time `json:"lastUpdate"`
}
