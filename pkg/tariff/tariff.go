// Package tariff converts between energy and prepaid currency.
package tariff

// DailyCost returns the currency spent per day for the given daily energy use.
// A non-positive tariff is a settings error and is not special-cased here; the
// resulting non-positive cost is treated as "no decay" by the projector.
func DailyCost(dailyKWh, tariffPerKWh float64) float64 {
	return dailyKWh * tariffPerKWh
}

// EnergyForAmount returns how many kWh the given amount buys. It returns 0 when
// the tariff is not positive.
func EnergyForAmount(amount, tariffPerKWh float64) float64 {
	if tariffPerKWh <= 0 {
		return 0
	}
	return amount / tariffPerKWh
}

// Budget is the deterministic energy plan for making an amount last a number
// of days.
type Budget struct {
	Amount             float64 `json:"amount"`
	Days               float64 `json:"days"`
	TariffPerKWh       float64 `json:"tariffPerKWh"`
	EnergyAvailableKWh float64 `json:"energyAvailableKWh"`
	DailyLimitKWh      float64 `json:"dailyLimitKWh"`
}

// DailyEnergyBudget splits the energy bought by amount evenly over days.
func DailyEnergyBudget(amount, days, tariffPerKWh float64) Budget {
	b := Budget{
		Amount:             amount,
		Days:               days,
		TariffPerKWh:       tariffPerKWh,
		EnergyAvailableKWh: EnergyForAmount(amount, tariffPerKWh),
	}
	if days > 0 {
		b.DailyLimitKWh = b.EnergyAvailableKWh / days
	}
	return b
}
