// Package notify dispatches system-level notifications for alerts.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/levenlabs/go-lflag"
)

// Permission is the state of the household's consent to system notifications.
type Permission string

const (
	// PermissionUnsupported means no notification channel is available.
	PermissionUnsupported Permission = "unsupported"
	// PermissionDefault means permission has not been decided yet.
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// ErrNotGranted is returned by Dispatch when permission is not granted.
var ErrNotGranted = errors.New("notification permission not granted")

// Notifier is a system notification channel.
type Notifier interface {
	// Permission returns the current permission without prompting.
	Permission(ctx context.Context) Permission

	// RequestPermission asks for permission if it has not been decided yet and
	// returns the resulting state.
	RequestPermission(ctx context.Context) Permission

	// Dispatch sends a notification. It returns ErrNotGranted when permission
	// is anything other than granted.
	Dispatch(ctx context.Context, title, body string) error

	// Close releases any connection held by the notifier.
	Close() error
}

// Configured sets up the Notifier based on flags.
func Configured() Notifier {
	provider := lflag.String("notify-provider", "none", "System notification provider (available: none, sns, mqtt)")

	var p struct{ Notifier }

	sn := configuredSNS()
	mq := configuredMQTT()

	lflag.Do(func() {
		switch *provider {
		case "none", "":
			p.Notifier = None{}
		case "sns":
			if err := sn.Validate(); err != nil {
				panic(fmt.Sprintf("sns validation failed: %v", err))
			}
			if err := sn.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("sns init failed: %v", err))
			}
			p.Notifier = sn
		case "mqtt":
			if err := mq.Validate(); err != nil {
				panic(fmt.Sprintf("mqtt validation failed: %v", err))
			}
			mq.Init()
			p.Notifier = mq
		default:
			panic(fmt.Sprintf("unknown notify provider: %s", *provider))
		}
	})

	return &p
}

// None is a Notifier for environments without a notification channel.
type None struct{}

var _ Notifier = None{}

// Permission implements Notifier.
func (None) Permission(context.Context) Permission { return PermissionUnsupported }

// RequestPermission implements Notifier.
func (None) RequestPermission(context.Context) Permission { return PermissionUnsupported }

// Dispatch implements Notifier.
func (None) Dispatch(context.Context, string, string) error { return ErrNotGranted }

// Close implements Notifier.
func (None) Close() error { return nil }
