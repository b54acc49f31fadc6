package tariff

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDailyCost(t *testing.T) {
	assert.InDelta(t, 40.0, DailyCost(5, 8), 1e-9)
	assert.Equal(t, 0.0, DailyCost(0, 8))

	t.Run("non-positive tariff passes through", func(t *testing.T) {
		assert.Equal(t, 0.0, DailyCost(5, 0))
		assert.Less(t, DailyCost(5, -1), 0.0)
	})
}

func TestDailyEnergyBudget(t *testing.T) {
	b := DailyEnergyBudget(500, 10, 8)
	assert.InDelta(t, 62.5, b.EnergyAvailableKWh, 1e-9)
	assert.InDelta(t, 6.25, b.DailyLimitKWh, 1e-9)

	t.Run("zero days", func(t *testing.T) {
		b := DailyEnergyBudget(500, 0, 8)
		assert.InDelta(t, 62.5, b.EnergyAvailableKWh, 1e-9)
		assert.Equal(t, 0.0, b.DailyLimitKWh)
	})

	t.Run("zero tariff", func(t *testing.T) {
		b := DailyEnergyBudget(500, 10, 0)
		assert.Equal(t, 0.0, b.EnergyAvailableKWh)
		assert.Equal(t, 0.0, b.DailyLimitKWh)
	})
}
