// Package tracker holds a household's live state and applies every mutation to
// it: appliances, recharges, syncs, profile edits and alerts.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/contaluz/contaluz/pkg/alerts"
	"github.com/contaluz/contaluz/pkg/ledger"
	"github.com/contaluz/contaluz/pkg/log"
	"github.com/contaluz/contaluz/pkg/notify"
	"github.com/contaluz/contaluz/pkg/projector"
	"github.com/contaluz/contaluz/pkg/storage"
	"github.com/contaluz/contaluz/pkg/types"
	"github.com/levenlabs/go-lflag"
)

var (
	ErrInvalidRecharge  = errors.New("recharge amount must be positive")
	ErrInvalidBalance   = errors.New("balance cannot be negative")
	ErrInvalidAppliance = errors.New("invalid appliance")
	ErrInvalidProfile   = errors.New("invalid profile")
	ErrNotFound         = errors.New("not found")
)

// Snapshot is a consistent copy of the household state and what is derived
// from it.
type Snapshot struct {
	State      types.State      `json:"state"`
	Projection types.Projection `json:"projection"`
	Alerts     []types.Alert    `json:"alerts"`
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// Tracker is the state container for one household. All methods are safe for
// concurrent use; mutations are applied one at a time.
type Tracker struct {
	db          storage.Database
	notifier    notify.Notifier
	householdID string
	now         func() time.Time

	mu         sync.Mutex
	appliances *ledger.Appliances
	recharges  *ledger.Recharges
	projector  *projector.Projector
	profile    types.Profile
	engine     *alerts.Engine
}

// New creates a Tracker with default state. Call Load to restore the stored
// state.
func New(db storage.Database, notifier notify.Notifier, householdID string, opts ...Option) *Tracker {
	if notifier == nil {
		notifier = notify.None{}
	}
	t := &Tracker{
		db:          db,
		notifier:    notifier,
		householdID: householdID,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.engine = alerts.NewEngine(alerts.NewStore(), notifier)
	t.apply(types.DefaultState(t.now()))
	return t
}

// Configured registers the household flag and returns a Tracker that loads its
// state once flags are parsed. db must be configured before calling this.
func Configured(db storage.Database, notifier notify.Notifier) *Tracker {
	householdID := lflag.String("household-id", "default", "Household whose state this instance serves")

	t := New(db, notifier, "")

	lflag.Do(func() {
		if *householdID == "" {
			panic("household-id is required")
		}
		t.householdID = *householdID
		if err := t.Load(context.Background()); err != nil {
			panic(fmt.Sprintf("failed to load household %s: %v", *householdID, err))
		}
	})

	return t
}

func (t *Tracker) apply(s types.State) {
	t.appliances = ledger.NewAppliances(s.Appliances)
	t.recharges = ledger.NewRecharges(s.Recharges)
	t.projector = projector.New(s.Balance, s.LastUpdate)
	t.profile = s.Profile
}

func (t *Tracker) state() types.State {
	return types.State{
		Balance:    t.projector.Balance(),
		Appliances: t.appliances.List(),
		Profile:    t.profile,
		LastUpdate: t.projector.LastSync(),
		Recharges:  t.recharges.List(),
	}
}

func (t *Tracker) projection() types.Projection {
	return projector.Project(t.projector.Balance(), t.appliances.TotalDailyKWh(), t.profile, t.projector.LastSync())
}

// evaluate runs the alert rules against the current state.
func (t *Tracker) evaluate(ctx context.Context) []types.Alert {
	return t.engine.Evaluate(ctx, t.projection(), t.profile, t.now())
}

// save persists the state. Failures are logged; the in-memory state stays
// authoritative.
func (t *Tracker) save(ctx context.Context) {
	if t.db == nil {
		return
	}
	if err := t.db.SaveState(ctx, t.householdID, t.state(), types.CurrentStateVersion); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to save state", slog.Any("error", err))
	}
}

// mutate applies fn under the lock, then re-evaluates the rules and saves. The
// newly raised alerts are sent as notifications after the lock is released.
func (t *Tracker) mutate(ctx context.Context, fn func() error) error {
	t.mu.Lock()
	if err := fn(); err != nil {
		t.mu.Unlock()
		return err
	}
	raised := t.evaluate(ctx)
	t.save(ctx)
	profile := t.profile
	t.mu.Unlock()

	t.engine.Notify(ctx, raised, profile)
	return nil
}

// Load restores the stored state. A missing or unreadable blob starts the
// household from defaults; any other storage error is returned. When the
// household had notifications enabled the notifier is asked for permission
// again, since its decision does not outlive the process.
func (t *Tracker) Load(ctx context.Context) error {
	ctx = log.WithHousehold(ctx, t.householdID)
	raised, profile, err := t.load(ctx)
	if err != nil {
		return err
	}

	if profile.NotificationsEnabled && t.notifier.Permission(ctx) == notify.PermissionDefault {
		perm := t.notifier.RequestPermission(ctx)
		log.Ctx(ctx).InfoContext(ctx, "requested notification permission on load", slog.String("permission", string(perm)))
	}
	t.engine.Notify(ctx, raised, profile)
	return nil
}

func (t *Tracker) load(ctx context.Context) ([]types.Alert, types.Profile, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := types.DefaultState(t.now())
	if t.db != nil {
		stored, version, err := t.db.LoadState(ctx, t.householdID)
		switch {
		case err == nil:
			migrated, changed, merr := types.MigrateState(stored, version)
			if merr != nil {
				return nil, types.Profile{}, fmt.Errorf("failed to migrate state: %w", merr)
			}
			s = migrated
			if changed || version < types.CurrentStateVersion {
				log.Ctx(ctx).InfoContext(ctx, "migrated state", slog.Int("from", version), slog.Int("to", types.CurrentStateVersion))
				defer t.save(ctx)
			}
		case errors.Is(err, storage.ErrStateNotFound):
			log.Ctx(ctx).InfoContext(ctx, "no stored state, starting from defaults")
		case errors.Is(err, storage.ErrCorruptState):
			log.Ctx(ctx).ErrorContext(ctx, "stored state is corrupt, starting from defaults", slog.Any("error", err))
		default:
			return nil, types.Profile{}, fmt.Errorf("failed to load state: %w", err)
		}
	}
	if s.LastUpdate.IsZero() {
		s.LastUpdate = t.now()
	}

	t.apply(s)
	return t.evaluate(ctx), t.profile, nil
}

// Snapshot returns the current state, projection and alerts.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		State:      t.state(),
		Projection: t.projection(),
		Alerts:     t.engine.Store().List(),
	}
}

// Projection returns the derived state.
func (t *Tracker) Projection() types.Projection {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.projection()
}

// Profile returns the household profile.
func (t *Tracker) Profile() types.Profile {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.profile
}

// Appliances returns the appliance ledger.
func (t *Tracker) Appliances() []types.Appliance {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.appliances.List()
}

// Recharges returns the recharge history, most recent first.
func (t *Tracker) Recharges() []types.Recharge {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.recharges.List()
}

// AddAppliance adds an active appliance.
func (t *Tracker) AddAppliance(ctx context.Context, f types.ApplianceFields) (types.Appliance, error) {
	if err := ledger.ValidateFields(f); err != nil {
		return types.Appliance{}, fmt.Errorf("%w: %w", ErrInvalidAppliance, err)
	}
	var a types.Appliance
	_ = t.mutate(ctx, func() error {
		a = t.appliances.Add(f)
		log.Ctx(ctx).DebugContext(ctx, "appliance added", slog.String("id", a.ID), slog.String("name", a.Name))
		return nil
	})
	return a, nil
}

// AddPreset adds an appliance from the preset catalog by name.
func (t *Tracker) AddPreset(ctx context.Context, name string) (types.Appliance, error) {
	p, ok := types.FindPreset(name)
	if !ok {
		return types.Appliance{}, fmt.Errorf("preset %q: %w", name, ErrNotFound)
	}
	var a types.Appliance
	_ = t.mutate(ctx, func() error {
		a = t.appliances.AddPreset(p)
		return nil
	})
	return a, nil
}

// UpdateAppliance replaces the editable fields of an appliance.
func (t *Tracker) UpdateAppliance(ctx context.Context, id string, f types.ApplianceFields) (types.Appliance, error) {
	if err := ledger.ValidateFields(f); err != nil {
		return types.Appliance{}, fmt.Errorf("%w: %w", ErrInvalidAppliance, err)
	}
	var a types.Appliance
	err := t.mutate(ctx, func() error {
		var ok bool
		if a, ok = t.appliances.Update(id, f); !ok {
			return fmt.Errorf("appliance %q: %w", id, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return types.Appliance{}, err
	}
	return a, nil
}

// RemoveAppliance deletes an appliance.
func (t *Tracker) RemoveAppliance(ctx context.Context, id string) error {
	return t.mutate(ctx, func() error {
		if !t.appliances.Remove(id) {
			return fmt.Errorf("appliance %q: %w", id, ErrNotFound)
		}
		return nil
	})
}

// ToggleAppliance flips whether an appliance counts towards daily usage.
func (t *Tracker) ToggleAppliance(ctx context.Context, id string) (types.Appliance, error) {
	var a types.Appliance
	err := t.mutate(ctx, func() error {
		var ok bool
		if a, ok = t.appliances.ToggleActive(id); !ok {
			return fmt.Errorf("appliance %q: %w", id, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return types.Appliance{}, err
	}
	return a, nil
}

// Recharge credits the balance, records the top-up and raises a confirmation
// alert.
func (t *Tracker) Recharge(ctx context.Context, amount float64) (types.Recharge, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return types.Recharge{}, ErrInvalidRecharge
	}
	var rec types.Recharge
	err := t.mutate(ctx, func() error {
		now := t.now()
		var ok bool
		if rec, ok = t.recharges.Recharge(amount, now); !ok {
			return ErrInvalidRecharge
		}
		t.projector.Credit(amount)
		t.engine.Store().InsertEvent(alerts.RechargeAlert(amount, now))
		log.Ctx(ctx).InfoContext(ctx, "recharged", slog.Float64("amount", amount), slog.Float64("balance", t.projector.Balance()))
		return nil
	})
	if err != nil {
		return types.Recharge{}, err
	}
	return rec, nil
}

// Sync charges the balance for the energy drawn since the last sync and
// raises a confirmation alert.
func (t *Tracker) Sync(ctx context.Context) projector.SyncResult {
	var res projector.SyncResult
	_ = t.mutate(ctx, func() error {
		now := t.now()
		res = t.projector.Sync(now, t.appliances.TotalDailyKWh(), t.profile.TariffPerKWh)
		t.engine.Store().InsertEvent(alerts.SyncAlert(now))
		log.Ctx(ctx).InfoContext(ctx, "synced",
			slog.Duration("elapsed", res.Elapsed),
			slog.Float64("deducted", res.Deducted),
			slog.Float64("balance", res.Balance),
		)
		return nil
	})
	return res
}

// SetBalance corrects the balance by hand, for instance after reading the
// meter.
func (t *Tracker) SetBalance(ctx context.Context, balance float64) error {
	if balance < 0 || math.IsNaN(balance) || math.IsInf(balance, 0) {
		return ErrInvalidBalance
	}
	return t.mutate(ctx, func() error {
		t.projector = projector.New(balance, t.projector.LastSync())
		return nil
	})
}

// UpdateProfile replaces the profile. Whether notifications are enabled is
// only changed through SetNotifications.
func (t *Tracker) UpdateProfile(ctx context.Context, p types.Profile) (types.Profile, error) {
	if err := p.Validate(); err != nil {
		return types.Profile{}, fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}
	if p.ResidenceConfig == "" {
		p.ResidenceConfig = types.DefaultResidenceConfig(p.ResidenceType)
	}
	_ = t.mutate(ctx, func() error {
		p.NotificationsEnabled = t.profile.NotificationsEnabled
		t.profile = p
		return nil
	})
	return p, nil
}

// Alerts returns every alert, most recent first.
func (t *Tracker) Alerts() []types.Alert {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.engine.Store().List()
}

// UnreadAlerts returns the unread alerts, most recent first.
func (t *Tracker) UnreadAlerts() []types.Alert {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.engine.Store().Unread()
}

// MarkAlertRead marks an alert as read. A read rule alert is not raised again
// while it exists.
func (t *Tracker) MarkAlertRead(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.engine.Store().MarkRead(id) {
		return fmt.Errorf("alert %q: %w", id, ErrNotFound)
	}
	return nil
}

// RemoveAlert deletes an alert. A removed rule alert is raised again on the
// next evaluation if its condition still holds.
func (t *Tracker) RemoveAlert(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.engine.Store().Remove(id) {
		return fmt.Errorf("alert %q: %w", id, ErrNotFound)
	}
	return nil
}

// ClearAlerts deletes every alert.
func (t *Tracker) ClearAlerts() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.engine.Store().Clear()
}

// Evaluate runs the alert rules, notifies for the newly raised alerts and
// returns them.
func (t *Tracker) Evaluate(ctx context.Context) []types.Alert {
	t.mu.Lock()
	raised := t.evaluate(ctx)
	profile := t.profile
	t.mu.Unlock()

	t.engine.Notify(ctx, raised, profile)
	return raised
}

// Reset deletes the stored state and returns the household to defaults.
func (t *Tracker) Reset(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.db != nil {
		if err := t.db.DeleteState(ctx, t.householdID); err != nil {
			return fmt.Errorf("failed to delete state: %w", err)
		}
	}
	t.apply(types.DefaultState(t.now()))
	t.engine.Store().Clear()
	log.Ctx(ctx).InfoContext(ctx, "household reset")
	return nil
}
