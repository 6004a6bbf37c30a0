package alarm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/proxwake/proxwake/internal/geofence"
)

// resourceReleasePause is slept twice during Silence to give the platform
// time to release sound and vibration resources before the notification is
// cancelled. This is the engine's one deliberate, bounded blocking wait.
const resourceReleasePause = 75 * time.Millisecond

// AnnouncerConfig holds configuration for the announcer.
type AnnouncerConfig struct {
	Presenter Presenter
	Logger    zerolog.Logger

	// VoiceEnabled gates the one-shot spoken announcement. Nil disables it.
	VoiceEnabled func(ctx context.Context) bool
}

// Announcer owns alarm presentation: it fires the full arrival side effect
// and tracks playback handles so the alarm can be silenced later. All
// presentation failures are logged and swallowed; a failed alarm sound must
// not be confused with "no arrival detected".
type Announcer struct {
	cfg AnnouncerConfig

	mu      sync.Mutex
	playing []PlaybackHandle
}

// NewAnnouncer creates an announcer.
func NewAnnouncer(cfg AnnouncerConfig) *Announcer {
	return &Announcer{cfg: cfg}
}

// Announce fires the arrival alarm: notification, sound, vibration, and
// optionally a spoken announcement. Never returns an error; the dispatcher's
// idempotence bookkeeping must not depend on presentation succeeding.
func (a *Announcer) Announce(ctx context.Context, region geofence.Region, distanceMeters float64) {
	defer func() {
		if r := recover(); r != nil {
			a.cfg.Logger.Error().Interface("panic", r).Msg("alarm presentation panicked")
		}
	}()

	title, message := Content(region.Mode)

	if err := a.cfg.Presenter.ShowAlarm(ctx, title, message, NotificationID, region.Mode); err != nil {
		a.cfg.Logger.Error().Err(err).Msg("failed to show arrival notification")
	}

	if handle, err := a.cfg.Presenter.PlaySound(ctx); err != nil {
		a.cfg.Logger.Error().Err(err).Msg("failed to play alarm sound")
	} else if handle != nil {
		a.track(handle)
	}

	if handle, err := a.cfg.Presenter.Vibrate(ctx, DefaultVibratePattern); err != nil {
		a.cfg.Logger.Error().Err(err).Msg("failed to vibrate")
	} else if handle != nil {
		a.track(handle)
	}

	if a.cfg.VoiceEnabled != nil && a.cfg.VoiceEnabled(ctx) {
		if err := a.cfg.Presenter.Speak(ctx, fmt.Sprintf("%s. %s", title, message)); err != nil {
			a.cfg.Logger.Error().Err(err).Msg("failed to speak announcement")
		}
	}

	a.cfg.Logger.Info().
		Str("region_id", region.ID).
		Str("mode", string(region.Mode)).
		Float64("distance_m", distanceMeters).
		Msg("arrival alarm dispatched")
}

// Silence stops any in-flight playback and cancels the arrival notification.
// The two short sleeps are intentional; see resourceReleasePause.
func (a *Announcer) Silence(ctx context.Context) {
	a.mu.Lock()
	handles := a.playing
	a.playing = nil
	a.mu.Unlock()

	for _, h := range handles {
		h.Stop()
	}
	time.Sleep(resourceReleasePause)

	if err := a.cfg.Presenter.CancelNotification(ctx, NotificationID); err != nil {
		a.cfg.Logger.Warn().Err(err).Msg("failed to cancel arrival notification")
	}
	time.Sleep(resourceReleasePause)
}

func (a *Announcer) track(handle PlaybackHandle) {
	a.mu.Lock()
	a.playing = append(a.playing, handle)
	a.mu.Unlock()
}
