package alarm

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/proxwake/proxwake/internal/geofence"
)

// LogPresenter is the presenter for headless deployments: every alarm action
// becomes a structured log line. Clients watching the event stream render
// the actual notification and sound.
type LogPresenter struct {
	logger zerolog.Logger
}

// NewLogPresenter creates a log-backed presenter.
func NewLogPresenter(logger zerolog.Logger) *LogPresenter {
	return &LogPresenter{logger: logger}
}

// ShowAlarm implements Presenter.
func (p *LogPresenter) ShowAlarm(_ context.Context, title, message string, id int, mode geofence.Mode) error {
	p.logger.Info().
		Int("notification_id", id).
		Str("title", title).
		Str("message", message).
		Str("mode", string(mode)).
		Msg("alarm notification")
	return nil
}

// PlaySound implements Presenter.
func (p *LogPresenter) PlaySound(_ context.Context) (PlaybackHandle, error) {
	p.logger.Info().Msg("alarm sound started")
	return logHandle{logger: p.logger, what: "sound"}, nil
}

// Vibrate implements Presenter.
func (p *LogPresenter) Vibrate(_ context.Context, pattern []time.Duration) (PlaybackHandle, error) {
	p.logger.Info().Int("pattern_len", len(pattern)).Msg("vibration started")
	return logHandle{logger: p.logger, what: "vibration"}, nil
}

// Speak implements Presenter.
func (p *LogPresenter) Speak(_ context.Context, text string) error {
	p.logger.Info().Str("text", text).Msg("spoken announcement")
	return nil
}

// CancelNotification implements Presenter.
func (p *LogPresenter) CancelNotification(_ context.Context, id int) error {
	p.logger.Info().Int("notification_id", id).Msg("alarm notification cancelled")
	return nil
}

type logHandle struct {
	logger zerolog.Logger
	what   string
}

func (h logHandle) Stop() {
	h.logger.Info().Str("playback", h.what).Msg("playback stopped")
}
