// Package ledger keeps the household's appliance and recharge records.
package ledger

import (
	"errors"
	"fmt"
	"slices"

	"github.com/contaluz/contaluz/pkg/types"
	"github.com/google/uuid"
)

// MaxHoursPerDay caps the daily usage of a single appliance.
const MaxHoursPerDay = 24

var errInvalidFields = errors.New("invalid appliance")

// ValidateFields checks the fields a user submits when saving an appliance.
// A zero quantity is allowed and later defaults to 1.
func ValidateFields(f types.ApplianceFields) error {
	if f.Name == "" {
		return fmt.Errorf("%w: name is required", errInvalidFields)
	}
	if f.PowerWatts <= 0 {
		return fmt.Errorf("%w: power must be positive", errInvalidFields)
	}
	if f.HoursPerDay < 0 || f.HoursPerDay > MaxHoursPerDay {
		return fmt.Errorf("%w: hours per day must be between 0 and %d", errInvalidFields, MaxHoursPerDay)
	}
	if f.Quantity < 0 {
		return fmt.Errorf("%w: quantity cannot be negative", errInvalidFields)
	}
	return nil
}

// Appliances is the ordered set of appliances in a household. It is not safe
// for concurrent use.
type Appliances struct {
	items []types.Appliance
	newID func() string
}

// NewAppliances creates a ledger holding a copy of items.
func NewAppliances(items []types.Appliance) *Appliances {
	return &Appliances{
		items: slices.Clone(items),
		newID: uuid.NewString,
	}
}

func applyFields(a types.Appliance, f types.ApplianceFields) types.Appliance {
	a.Name = f.Name
	a.PowerWatts = f.PowerWatts
	a.HoursPerDay = f.HoursPerDay
	a.Quantity = f.Quantity
	if a.Quantity < 1 {
		a.Quantity = 1
	}
	a.Category = f.Category
	if a.Category == "" {
		a.Category = types.CategoryOther
	}
	a.Model = f.Model
	a.Voltage = f.Voltage
	return a
}

// Add appends a new active appliance with a fresh id and returns it.
func (l *Appliances) Add(f types.ApplianceFields) types.Appliance {
	a := applyFields(types.Appliance{ID: l.newID(), IsActive: true}, f)
	l.items = append(l.items, a)
	return a
}

// AddPreset appends one unit of a built-in preset.
func (l *Appliances) AddPreset(p types.Preset) types.Appliance {
	return l.Add(types.ApplianceFields{
		Name:        p.Name,
		PowerWatts:  p.PowerWatts,
		HoursPerDay: p.HoursPerDay,
		Quantity:    1,
		Category:    p.Category,
	})
}

func (l *Appliances) index(id string) int {
	return slices.IndexFunc(l.items, func(a types.Appliance) bool {
		return a.ID == id
	})
}

// Get returns the appliance with the given id.
func (l *Appliances) Get(id string) (types.Appliance, bool) {
	i := l.index(id)
	if i < 0 {
		return types.Appliance{}, false
	}
	return l.items[i], true
}

// Update replaces the editable fields of an appliance. The id and active flag
// are kept. It reports false if no appliance has the id.
func (l *Appliances) Update(id string, f types.ApplianceFields) (types.Appliance, bool) {
	i := l.index(id)
	if i < 0 {
		return types.Appliance{}, false
	}
	l.items[i] = applyFields(l.items[i], f)
	return l.items[i], true
}

// Remove deletes an appliance and reports whether it existed.
func (l *Appliances) Remove(id string) bool {
	i := l.index(id)
	if i < 0 {
		return false
	}
	l.items = slices.Delete(l.items, i, i+1)
	return true
}

// ToggleActive flips whether an appliance counts toward daily usage.
func (l *Appliances) ToggleActive(id string) (types.Appliance, bool) {
	i := l.index(id)
	if i < 0 {
		return types.Appliance{}, false
	}
	l.items[i].IsActive = !l.items[i].IsActive
	return l.items[i], true
}

// TotalDailyKWh sums the daily energy of every active appliance.
func (l *Appliances) TotalDailyKWh() float64 {
	var total float64
	for _, a := range l.items {
		if a.IsActive {
			total += a.DailyKWh()
		}
	}
	return total
}

// List returns a copy of the appliances in insertion order.
func (l *Appliances) List() []types.Appliance {
	out := slices.Clone(l.items)
	if out == nil {
		out = []types.Appliance{}
	}
	return out
}

// Len returns the number of appliances.
func (l *Appliances) Len() int {
	return len(l.items)
}
