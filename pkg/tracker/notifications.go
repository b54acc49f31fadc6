package tracker

import (
	"context"
	"log/slog"

	"github.com/contaluz/contaluz/pkg/log"
	"github.com/contaluz/contaluz/pkg/notify"
)

// Messages shown to the household when toggling notifications.
const (
	MessageUnsupported = "Este dispositivo não suporta notificações de sistema."
	MessageDenied      = "Acesso negado. Por favor, habilite as notificações manualmente nas configurações."
	MessageBlocked     = "Notificações estão bloqueadas. Desbloqueie-as para usar esta função."
)

// NotificationResult is the outcome of toggling notifications.
type NotificationResult struct {
	Enabled    bool              `json:"enabled"`
	Permission notify.Permission `json:"permission"`
	// Message is a one-time notice for the household, empty when there is
	// nothing to say.
	Message string `json:"message,omitempty"`
}

// SetNotifications turns system notifications on or off. Turning them on asks
// the notifier for permission when it has not been decided yet. Alerts keep
// being raised whatever the outcome.
func (t *Tracker) SetNotifications(ctx context.Context, enabled bool) NotificationResult {
	if !enabled {
		t.setNotificationsEnabled(ctx, false)
		return NotificationResult{
			Enabled:    false,
			Permission: t.notifier.Permission(ctx),
		}
	}

	res := NotificationResult{Permission: t.notifier.Permission(ctx)}
	switch res.Permission {
	case notify.PermissionUnsupported:
		res.Enabled = true
		res.Message = MessageUnsupported
	case notify.PermissionGranted:
		res.Enabled = true
	case notify.PermissionDefault:
		res.Permission = t.notifier.RequestPermission(ctx)
		if res.Permission == notify.PermissionGranted {
			res.Enabled = true
			if err := t.notifier.Dispatch(ctx, "ContaLuz Ativado", "Você agora receberá alertas de energia."); err != nil {
				log.Ctx(ctx).WarnContext(ctx, "failed to dispatch welcome notification", slog.Any("error", err))
			}
		} else {
			res.Message = MessageDenied
		}
	default:
		res.Message = MessageBlocked
	}

	if res.Enabled {
		t.setNotificationsEnabled(ctx, true)
	}
	return res
}

func (t *Tracker) setNotificationsEnabled(ctx context.Context, enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.profile.NotificationsEnabled = enabled
	t.save(ctx)
}
