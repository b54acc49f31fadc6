package ledger

import (
	"slices"
	"time"

	"github.com/contaluz/contaluz/pkg/types"
	"github.com/google/uuid"
)

// Recharges is the recharge history, most recent first. Records are never
// modified once created.
type Recharges struct {
	items []types.Recharge
	newID func() string
}

// NewRecharges creates a history holding a copy of items, which must already
// be ordered most recent first.
func NewRecharges(items []types.Recharge) *Recharges {
	return &Recharges{
		items: slices.Clone(items),
		newID: uuid.NewString,
	}
}

// Recharge records a top-up of amount at now. Non-positive amounts are
// rejected and reported as false.
func (r *Recharges) Recharge(amount float64, now time.Time) (types.Recharge, bool) {
	if amount <= 0 {
		return types.Recharge{}, false
	}
	rec := types.Recharge{
		ID:     r.newID(),
		Date:   now,
		Amount: amount,
	}
	r.items = slices.Insert(r.items, 0, rec)
	return rec, true
}

// List returns a copy of the history, most recent first.
func (r *Recharges) List() []types.Recharge {
	out := slices.Clone(r.items)
	if out == nil {
		out = []types.Recharge{}
	}
	return out
}

// Total returns the sum of all recharges.
func (r *Recharges) Total() float64 {
	var total float64
	for _, rec := range r.items {
		total += rec.Amount
	}
	return total
}
