package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/contaluz/contaluz/pkg/log"
	"github.com/contaluz/contaluz/pkg/notify"
	"github.com/contaluz/contaluz/pkg/types"
)

// Engine evaluates the alert rules against a projection and records the
// alerts they raise in its Store.
type Engine struct {
	store    *Store
	notifier notify.Notifier
}

// NewEngine creates an Engine. A nil notifier disables system notifications.
func NewEngine(store *Store, notifier notify.Notifier) *Engine {
	if notifier == nil {
		notifier = notify.None{}
	}
	return &Engine{
		store:    store,
		notifier: notifier,
	}
}

// Store returns the engine's alert collection.
func (e *Engine) Store() *Store {
	return e.store
}

// Evaluate runs both rules and returns the alerts that were newly inserted. A
// rule whose alert already exists, read or unread, inserts nothing. Sending
// system notifications for them is left to Notify.
func (e *Engine) Evaluate(ctx context.Context, p types.Projection, profile types.Profile, now time.Time) []types.Alert {
	var fired []types.Alert
	if a, ok := autonomyLow(p, profile, now); ok {
		fired = append(fired, a)
	}
	if a, ok := highConsumption(p, profile, now); ok {
		fired = append(fired, a)
	}

	var inserted []types.Alert
	for _, a := range fired {
		if e.store.InsertRule(a) {
			inserted = append(inserted, a)
		}
	}
	if len(inserted) == 0 {
		return nil
	}

	log.Ctx(ctx).InfoContext(ctx, "alerts raised", slog.Int("count", len(inserted)))
	return inserted
}

// Notify sends one system notification per alert when the profile has them
// enabled and permission is granted. Failures are logged and dropped. It does
// not touch the Store.
func (e *Engine) Notify(ctx context.Context, raised []types.Alert, profile types.Profile) {
	if len(raised) == 0 || !profile.NotificationsEnabled {
		return
	}
	if e.notifier.Permission(ctx) != notify.PermissionGranted {
		return
	}
	for _, a := range raised {
		if err := e.notifier.Dispatch(ctx, a.Title, a.Description); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to dispatch notification", slog.String("alertID", a.ID), slog.Any("error", err))
		}
	}
}

func autonomyLow(p types.Projection, profile types.Profile, now time.Time) (types.Alert, bool) {
	days := float64(p.AutonomyDays)
	if !(days < profile.LowBalanceThresholdDays && p.Balance > 0) {
		return types.Alert{}, false
	}
	return types.Alert{
		ID:    types.AlertIDAutonomyLow,
		Title: "Energia Crítica!",
		Description: fmt.Sprintf(
			"Sua energia dura menos de %s dias (%s restantes). Saldo atual: %.2f MT.",
			formatNumber(profile.LowBalanceThresholdDays), formatNumber(days), p.Balance,
		),
		Type: types.AlertTypeDanger,
		Date: now,
	}, true
}

func highConsumption(p types.Projection, profile types.Profile, now time.Time) (types.Alert, bool) {
	if !(p.ConsumptionDiffPercent > profile.HighConsumptionThresholdPercent) {
		return types.Alert{}, false
	}
	return types.Alert{
		ID:    types.AlertIDHighConsumption,
		Title: "Pico de Consumo!",
		Description: fmt.Sprintf(
			"Seu uso subiu %.0f%%, excedendo seu limite de %s%%.",
			p.ConsumptionDiffPercent, formatNumber(profile.HighConsumptionThresholdPercent),
		),
		Type: types.AlertTypeWarning,
		Date: now,
	}, true
}

// RechargeAlert is the confirmation raised after a recharge.
func RechargeAlert(amount float64, now time.Time) types.Alert {
	return types.Alert{
		ID:          "recharge-" + strconv.FormatInt(now.UnixNano(), 10),
		Title:       "Recarga Confirmada",
		Description: fmt.Sprintf("Foram adicionados %.2f MT ao seu saldo com sucesso.", amount),
		Type:        types.AlertTypeInfo,
		Date:        now,
	}
}

// SyncAlert is the confirmation raised after a meter sync.
func SyncAlert(now time.Time) types.Alert {
	return types.Alert{
		ID:          "sync-" + strconv.FormatInt(now.UnixNano(), 10),
		Title:       "Sincronização Concluída",
		Description: fmt.Sprintf("Leitura do contador atualizada com sucesso às %s.", now.Format("15:04:05")),
		Type:        types.AlertTypeInfo,
		Date:        now,
	}
}

// formatNumber prints whole numbers without decimals.
func formatNumber(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
