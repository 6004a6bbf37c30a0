// Package alarm is the presentation boundary for arrival alarms. The engine
// only triggers side effects here; it never reads presentation results back
// into the monitoring state machine.
package alarm

import (
	"context"
	"time"

	"github.com/proxwake/proxwake/internal/geofence"
)

// NotificationID is the stable identifier for the arrival notification, so
// re-triggers replace rather than stack.
const NotificationID = 4001

// DefaultVibratePattern alternates pause/buzz, starting with a short pause.
var DefaultVibratePattern = []time.Duration{
	100 * time.Millisecond, 400 * time.Millisecond,
	200 * time.Millisecond, 400 * time.Millisecond,
	200 * time.Millisecond, 400 * time.Millisecond,
}

// PlaybackHandle controls one in-flight sound or vibration playback.
// Holding explicit handles (rather than process-wide statics) makes lifetime
// and cancellation ownership clear.
type PlaybackHandle interface {
	Stop()
}

// Presenter delivers user-facing alarm output. Implementations wrap the
// platform notification stack; all methods are side-effect only and their
// failures never influence monitoring decisions.
type Presenter interface {
	ShowAlarm(ctx context.Context, title, message string, id int, mode geofence.Mode) error
	PlaySound(ctx context.Context) (PlaybackHandle, error)
	Vibrate(ctx context.Context, pattern []time.Duration) (PlaybackHandle, error)
	Speak(ctx context.Context, text string) error
	CancelNotification(ctx context.Context, id int) error
}

// Content returns the notification title and message for a region mode.
func Content(mode geofence.Mode) (title, message string) {
	if mode == geofence.ModeActiveNavigation {
		return "Destination reached", "You have arrived at your destination."
	}
	return "Pinned location reached", "You are near your pinned location."
}
