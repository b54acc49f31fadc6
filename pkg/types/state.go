package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// CurrentStateVersion is the current version of the persisted state blob.
// Increment this value when adding new fields that require default values.
const CurrentStateVersion = 1

const (
	// DefaultTariffPerKWh is the average prepaid tariff in Mozambique (MT/kWh).
	DefaultTariffPerKWh = 8.0
	// DefaultHistoricalAvgKWh is the assumed daily usage before the user sets one.
	DefaultHistoricalAvgKWh = 5.0

	DefaultLowBalanceThresholdDays         = 3
	DefaultHighConsumptionThresholdPercent = 30
)

// Appliance is a single appliance entry in the household ledger.
type Appliance struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	PowerWatts  float64 `json:"power"`
	HoursPerDay float64 `json:"hoursPerDay"`
	// Quantity is the number of identical units, always at least 1.
	Quantity int    `json:"quantity"`
	Category string `json:"category"`
	IsActive bool   `json:"isActive"`
	Model    string `json:"model,omitempty"`
	Voltage  string `json:"voltage,omitempty"`
}

// DailyKWh returns the energy this appliance draws per day across all units.
func (a Appliance) DailyKWh() float64 {
	q := a.Quantity
	if q < 1 {
		q = 1
	}
	return a.PowerWatts * a.HoursPerDay * float64(q) / 1000
}

// ApplianceFields are the user-editable fields of an appliance.
type ApplianceFields struct {
	Name        string  `json:"name"`
	PowerWatts  float64 `json:"power"`
	HoursPerDay float64 `json:"hoursPerDay"`
	Quantity    int     `json:"quantity"`
	Category    string  `json:"category"`
	Model       string  `json:"model,omitempty"`
	Voltage     string  `json:"voltage,omitempty"`
}

// Recharge is an immutable record of a prepaid top-up.
type Recharge struct {
	ID     string    `json:"id"`
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
}

// Profile is the household configuration.
type Profile struct {
	Name            string `json:"name"`
	Address         string `json:"address"`
	Province        string `json:"province"`
	City            string `json:"city"`
	District        string `json:"district"`
	Neighborhood    string `json:"neighborhood"`
	ResidenceType   string `json:"residenceType"`
	ResidenceConfig string `json:"residenceConfig"`
	PhotoURL        string `json:"photoUrl,omitempty"`

	// Tariff in MT per kWh, must be positive.
	TariffPerKWh float64 `json:"tariffPerKWh"`
	// HistoricalAvgKWh is the baseline daily usage used for deviation.
	HistoricalAvgKWh float64 `json:"historicalAvgKWh"`

	NotificationsEnabled bool `json:"notificationsEnabled"`
	OnboardingCompleted  bool `json:"onboardingCompleted"`

	// Alert Thresholds
	LowBalanceThresholdDays         float64 `json:"lowBalanceThresholdDays"`
	HighConsumptionThresholdPercent float64 `json:"highConsumptionThresholdPercent"`
}

// DefaultProfile returns the profile a new household starts with.
func DefaultProfile() Profile {
	return Profile{
		Province:                        "Maputo Cidade",
		ResidenceType:                   "Casa",
		ResidenceConfig:                 "T2",
		TariffPerKWh:                    DefaultTariffPerKWh,
		HistoricalAvgKWh:                DefaultHistoricalAvgKWh,
		NotificationsEnabled:            true,
		LowBalanceThresholdDays:         DefaultLowBalanceThresholdDays,
		HighConsumptionThresholdPercent: DefaultHighConsumptionThresholdPercent,
	}
}

// Validate checks the settings-boundary constraints of the profile.
func (p Profile) Validate() error {
	if p.TariffPerKWh <= 0 {
		return fmt.Errorf("tariff per kWh must be positive")
	}
	if p.HistoricalAvgKWh < 0 {
		return fmt.Errorf("historical average cannot be negative")
	}
	if p.LowBalanceThresholdDays < 0 {
		return fmt.Errorf("low balance threshold cannot be negative")
	}
	if p.HighConsumptionThresholdPercent < 0 {
		return fmt.Errorf("high consumption threshold cannot be negative")
	}
	return nil
}

// State is the persisted household blob. Alerts are intentionally not part of
// it and reset on every restart.
type State struct {
	Balance    float64     `json:"balance"`
	Appliances []Appliance `json:"appliances"`
	Profile    Profile     `json:"profile"`
	LastUpdate time.Time   `json:"lastUpdate"`
	Recharges  []Recharge  `json:"recharges"`
}

// DefaultState returns an empty household synced at now.
func DefaultState(now time.Time) State {
	return State{
		Appliances: []Appliance{},
		Profile:    DefaultProfile(),
		LastUpdate: now,
		Recharges:  []Recharge{},
	}
}

// DecodeState decodes a persisted blob. Profile fields missing from the blob
// keep their defaults.
func DecodeState(data []byte) (State, error) {
	s := State{Profile: DefaultProfile()}
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, err
	}
	if s.Appliances == nil {
		s.Appliances = []Appliance{}
	}
	if s.Recharges == nil {
		s.Recharges = []Recharge{}
	}
	return s, nil
}

// MigrateState migrates the state to the current version.
// It returns the migrated state, a boolean indicating if changes were made, and an error if migration failed.
// Appliance quantities are backfilled to 1 at every version.
func MigrateState(s State, currentVersion int) (State, bool, error) {
	for version := currentVersion + 1; version <= CurrentStateVersion; version++ {
		switch version {
		case 1:
			// version 1: quantity was added to appliances
		default:
			return s, false, fmt.Errorf("unknown state version: %d", version)
		}
	}

	migrated := false
	for i := range s.Appliances {
		if s.Appliances[i].Quantity < 1 {
			s.Appliances[i].Quantity = 1
			migrated = true
		}
	}
	return s, migrated, nil
}
