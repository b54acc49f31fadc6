// Package projector tracks the prepaid balance over time and projects how long
// it will last.
package projector

import (
	"math"
	"time"

	"github.com/contaluz/contaluz/pkg/deviation"
	"github.com/contaluz/contaluz/pkg/tariff"
	"github.com/contaluz/contaluz/pkg/types"
)

// MinSyncElapsed is the smallest gap between syncs that decays the balance.
// Shorter gaps are treated as noise.
const MinSyncElapsed = 36 * time.Second

// AutonomyDays returns the number of full days balance lasts at dailyCost.
// It returns +Inf when nothing is being spent and there is balance left.
func AutonomyDays(balance, dailyCost float64) float64 {
	if dailyCost > 0 {
		return math.Floor(balance / dailyCost)
	}
	if balance > 0 {
		return math.Inf(1)
	}
	return 0
}

// Project computes the derived state for a balance and the current daily usage.
func Project(balance, dailyKWh float64, profile types.Profile, lastUpdate time.Time) types.Projection {
	cost := tariff.DailyCost(dailyKWh, profile.TariffPerKWh)
	days := AutonomyDays(balance, cost)
	return types.Projection{
		Balance:                balance,
		DailyKWh:               dailyKWh,
		DailyCost:              cost,
		AutonomyDays:           types.Days(days),
		Indefinite:             math.IsInf(days, 1),
		ConsumptionDiffPercent: deviation.Percent(dailyKWh, profile.HistoricalAvgKWh),
		LastUpdate:             lastUpdate,
	}
}

// SyncResult describes what a sync did.
type SyncResult struct {
	Elapsed  time.Duration `json:"elapsed"`
	Deducted float64       `json:"deducted"`
	Balance  float64       `json:"balance"`
	SyncedAt time.Time     `json:"syncedAt"`
}

// Projector owns the balance and the time it was last reconciled. It is not
// safe for concurrent use; callers serialize access.
type Projector struct {
	balance  float64
	lastSync time.Time
}

// New creates a Projector. Negative balances are clamped to zero.
func New(balance float64, lastSync time.Time) *Projector {
	return &Projector{
		balance:  math.Max(0, balance),
		lastSync: lastSync,
	}
}

// Balance returns the current balance.
func (p *Projector) Balance() float64 {
	return p.balance
}

// LastSync returns the time of the last sync.
func (p *Projector) LastSync() time.Time {
	return p.lastSync
}

// Credit adds a recharge amount to the balance. Non-positive amounts are
// ignored.
func (p *Projector) Credit(amount float64) {
	if amount <= 0 {
		return
	}
	p.balance += amount
}

// Sync charges the balance for the energy drawn since the last sync and moves
// the sync point to now. The charge is skipped when the gap is under
// MinSyncElapsed, the balance is empty, or the draw costs nothing. The sync
// point always advances.
func (p *Projector) Sync(now time.Time, dailyKWh, tariffPerKWh float64) SyncResult {
	elapsed := now.Sub(p.lastSync)
	res := SyncResult{
		Elapsed:  elapsed,
		SyncedAt: now,
	}

	if elapsed > MinSyncElapsed && p.balance > 0 {
		hours := elapsed.Hours()
		cost := (dailyKWh / 24) * hours * tariffPerKWh
		if cost > 0 {
			next := math.Max(0, p.balance-cost)
			res.Deducted = p.balance - next
			p.balance = next
		}
	}

	p.lastSync = now
	res.Balance = p.balance
	return res
}
