package ledger

import (
	"fmt"
	"math"
	"testing"

	"github.com/contaluz/contaluz/pkg/types"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() func() string {
	var n int
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestAppliances() *Appliances {
	l := NewAppliances(nil)
	l.newID = sequentialIDs()
	return l
}

func TestAppliances(t *testing.T) {
	t.Run("Add", func(t *testing.T) {
		l := newTestAppliances()
		a := l.Add(types.ApplianceFields{Name: "Geladeira", PowerWatts: 150, HoursPerDay: 24})
		assert.Equal(t, "id-1", a.ID)
		assert.Equal(t, 1, a.Quantity, "quantity should default to 1")
		assert.Equal(t, types.CategoryOther, a.Category)
		assert.True(t, a.IsActive)

		b := l.Add(types.ApplianceFields{Name: "Lâmpada", PowerWatts: 9, HoursPerDay: 6, Quantity: 10, Category: types.CategoryLighting})
		assert.Equal(t, "id-2", b.ID)
		assert.Equal(t, 10, b.Quantity)

		list := l.List()
		require.Len(t, list, 2)
		assert.Equal(t, "Geladeira", list[0].Name)
		assert.Equal(t, "Lâmpada", list[1].Name)
	})

	t.Run("AddPreset", func(t *testing.T) {
		l := newTestAppliances()
		p, ok := types.FindPreset("Televisão")
		require.True(t, ok)
		a := l.AddPreset(p)
		assert.Equal(t, "Televisão", a.Name)
		assert.Equal(t, 100.0, a.PowerWatts)
		assert.Equal(t, 4.0, a.HoursPerDay)
		assert.Equal(t, 1, a.Quantity)
		assert.Equal(t, types.CategoryElectronic, a.Category)
	})

	t.Run("Update", func(t *testing.T) {
		l := newTestAppliances()
		a := l.Add(types.ApplianceFields{Name: "Ferro", PowerWatts: 1200, HoursPerDay: 0.5})
		l.ToggleActive(a.ID)

		updated, ok := l.Update(a.ID, types.ApplianceFields{Name: "Ferro a vapor", PowerWatts: 2000, HoursPerDay: 1, Quantity: 0, Model: "FV-1", Voltage: "220V"})
		require.True(t, ok)
		assert.Equal(t, a.ID, updated.ID)
		assert.Equal(t, "Ferro a vapor", updated.Name)
		assert.Equal(t, 2000.0, updated.PowerWatts)
		assert.Equal(t, 1, updated.Quantity)
		assert.Equal(t, "FV-1", updated.Model)
		assert.False(t, updated.IsActive, "update should not touch the active flag")

		_, ok = l.Update("missing", types.ApplianceFields{Name: "x", PowerWatts: 1})
		assert.False(t, ok)
		assert.Equal(t, 1, l.Len())
	})

	t.Run("Remove", func(t *testing.T) {
		l := newTestAppliances()
		a := l.Add(types.ApplianceFields{Name: "TV", PowerWatts: 100, HoursPerDay: 4})
		l.Add(types.ApplianceFields{Name: "Rádio", PowerWatts: 10, HoursPerDay: 4})

		assert.True(t, l.Remove(a.ID))
		assert.False(t, l.Remove(a.ID))
		_, ok := l.Get(a.ID)
		assert.False(t, ok)
		assert.Equal(t, 1, l.Len())
	})

	t.Run("TotalDailyKWh", func(t *testing.T) {
		l := newTestAppliances()
		assert.Equal(t, 0.0, l.TotalDailyKWh(), "no appliances is zero, not an error")

		l.Add(types.ApplianceFields{Name: "Geladeira", PowerWatts: 150, HoursPerDay: 24})
		tv := l.Add(types.ApplianceFields{Name: "TV", PowerWatts: 100, HoursPerDay: 4, Quantity: 2})
		assert.InDelta(t, 3.6+0.8, l.TotalDailyKWh(), 1e-9)

		_, ok := l.ToggleActive(tv.ID)
		require.True(t, ok)
		assert.InDelta(t, 3.6, l.TotalDailyKWh(), 1e-9)

		_, ok = l.ToggleActive(tv.ID)
		require.True(t, ok)
		assert.InDelta(t, 4.4, l.TotalDailyKWh(), 1e-9)

		_, ok = l.ToggleActive("missing")
		assert.False(t, ok)
	})

	t.Run("List is a copy", func(t *testing.T) {
		l := newTestAppliances()
		assert.NotNil(t, l.List())
		l.Add(types.ApplianceFields{Name: "TV", PowerWatts: 100, HoursPerDay: 4})
		list := l.List()
		list[0].Name = "changed"
		a, _ := l.Get(list[0].ID)
		assert.Equal(t, "TV", a.Name)
	})
}

func TestValidateFields(t *testing.T) {
	assert.NoError(t, ValidateFields(types.ApplianceFields{Name: "TV", PowerWatts: 100, HoursPerDay: 4}))
	assert.NoError(t, ValidateFields(types.ApplianceFields{Name: "TV", PowerWatts: 100}))
	assert.Error(t, ValidateFields(types.ApplianceFields{PowerWatts: 100, HoursPerDay: 4}))
	assert.Error(t, ValidateFields(types.ApplianceFields{Name: "TV", HoursPerDay: 4}))
	assert.Error(t, ValidateFields(types.ApplianceFields{Name: "TV", PowerWatts: -1}))
	assert.Error(t, ValidateFields(types.ApplianceFields{Name: "TV", PowerWatts: 1, HoursPerDay: 25}))
	assert.Error(t, ValidateFields(types.ApplianceFields{Name: "TV", PowerWatts: 1, Quantity: -2}))
}

func TestDailyKWhProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	total := func(power, hours float64, quantity int) float64 {
		l := newTestAppliances()
		l.Add(types.ApplianceFields{Name: "base", PowerWatts: 60, HoursPerDay: 2})
		l.Add(types.ApplianceFields{Name: "x", PowerWatts: power, HoursPerDay: hours, Quantity: quantity})
		return l.TotalDailyKWh()
	}

	properties.Property("non-decreasing in power", prop.ForAll(
		func(power, delta, hours float64, quantity int) bool {
			return total(power+delta, hours, quantity) >= total(power, hours, quantity)
		},
		gen.Float64Range(0, 5000),
		gen.Float64Range(0, 1000),
		gen.Float64Range(0, 24),
		gen.IntRange(1, 50),
	))

	properties.Property("non-decreasing in hours", prop.ForAll(
		func(power, hours, delta float64, quantity int) bool {
			return total(power, hours+delta, quantity) >= total(power, hours, quantity)
		},
		gen.Float64Range(0, 5000),
		gen.Float64Range(0, 12),
		gen.Float64Range(0, 12),
		gen.IntRange(1, 50),
	))

	properties.Property("non-decreasing in quantity", prop.ForAll(
		func(power, hours float64, quantity, delta int) bool {
			return total(power, hours, quantity+delta) >= total(power, hours, quantity)
		},
		gen.Float64Range(0, 5000),
		gen.Float64Range(0, 24),
		gen.IntRange(1, 50),
		gen.IntRange(0, 50),
	))

	properties.Property("deactivating removes the exact contribution", prop.ForAll(
		func(power, hours float64, quantity int) bool {
			l := newTestAppliances()
			l.Add(types.ApplianceFields{Name: "base", PowerWatts: 60, HoursPerDay: 2})
			a := l.Add(types.ApplianceFields{Name: "x", PowerWatts: power, HoursPerDay: hours, Quantity: quantity})
			before := l.TotalDailyKWh()
			l.ToggleActive(a.ID)
			after := l.TotalDailyKWh()
			return math.Abs((before-after)-a.DailyKWh()) < 1e-9
		},
		gen.Float64Range(0, 5000),
		gen.Float64Range(0, 24),
		gen.IntRange(1, 50),
	))

	properties.TestingRun(t)
}
