package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/proxwake/proxwake/internal/alarm"
	"github.com/proxwake/proxwake/internal/events"
	"github.com/proxwake/proxwake/internal/geofence"
	"github.com/proxwake/proxwake/internal/proximity"
	"github.com/proxwake/proxwake/internal/telemetry"
)

// DispatcherConfig holds configuration for the transition dispatcher.
type DispatcherConfig struct {
	Repo      proximity.Repository
	Announcer *alarm.Announcer
	Publisher events.Publisher
	Logger    zerolog.Logger
	Metrics   *telemetry.EngineMetrics
}

// Dispatcher consumes verified transitions from both sources (platform
// geofence callbacks and the continuous evaluator) and triggers the arrival
// alarm at most once per arrival. The two sources race with no ordering
// guarantee and at-least-once delivery; the mutex plus the persisted
// alarm-fired flag are the sole protection against double alarms, so both
// checks and their flag writes happen under the lock.
type Dispatcher struct {
	cfg DispatcherConfig
	mu  sync.Mutex
}

// NewDispatcher creates a transition dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	return &Dispatcher{cfg: cfg}
}

// VerifiedInside handles a verified inside verdict for the region. The
// alarm fires only on an outside-to-inside transition with no prior alarm
// for this region; duplicate notifications are absorbed silently.
func (d *Dispatcher) VerifiedInside(ctx context.Context, region geofence.Region, distanceMeters float64) error {
	d.mu.Lock()

	wasInside, err := d.cfg.Repo.IsInside(ctx)
	if err != nil {
		d.mu.Unlock()
		return fmt.Errorf("read inside flag: %w", err)
	}
	fired, err := d.cfg.Repo.AlarmFired(ctx)
	if err != nil {
		d.mu.Unlock()
		return fmt.Errorf("read alarm flag: %w", err)
	}

	if !wasInside {
		if err := d.cfg.Repo.SetInside(ctx, true); err != nil {
			d.mu.Unlock()
			return fmt.Errorf("persist inside flag: %w", err)
		}
	}

	willAlarm := !wasInside && !fired
	if willAlarm {
		// The flag is persisted before the side effect; if this write
		// fails we skip the alarm rather than risk firing twice.
		if err := d.cfg.Repo.SetAlarmFired(ctx, true); err != nil {
			d.mu.Unlock()
			d.cfg.Logger.Error().Err(err).Msg("failed to persist alarm flag, suppressing alarm")
			return fmt.Errorf("persist alarm flag: %w", err)
		}
	}
	d.mu.Unlock()

	if !willAlarm {
		if !wasInside {
			// Entered, but this arrival was already alerted.
			d.publishTransition(ctx, events.TypeRegionEntered, region, true, distanceMeters)
		}
		return nil
	}

	d.cfg.Metrics.Transition(ctx, "inside")
	d.cfg.Metrics.AlarmFired(ctx)

	d.cfg.Logger.Info().
		Str("region_id", region.ID).
		Float64("distance_m", distanceMeters).
		Msg("verified arrival, dispatching alarm")

	d.cfg.Announcer.Announce(ctx, region, distanceMeters)
	d.publishTransition(ctx, events.TypeRegionEntered, region, true, distanceMeters)
	return nil
}

// VerifiedOutside handles a verified outside verdict. No alarm fires; the
// inside flag is updated and the alarm re-arms so a later re-entry alerts
// again.
func (d *Dispatcher) VerifiedOutside(ctx context.Context, region geofence.Region, distanceMeters float64) error {
	d.mu.Lock()

	wasInside, err := d.cfg.Repo.IsInside(ctx)
	if err != nil {
		d.mu.Unlock()
		return fmt.Errorf("read inside flag: %w", err)
	}

	if wasInside {
		if err := d.cfg.Repo.SetInside(ctx, false); err != nil {
			d.mu.Unlock()
			return fmt.Errorf("persist inside flag: %w", err)
		}
		// AlarmFired may only be true while inside.
		if err := d.cfg.Repo.SetAlarmFired(ctx, false); err != nil {
			d.mu.Unlock()
			return fmt.Errorf("persist alarm flag: %w", err)
		}
	}
	d.mu.Unlock()

	if wasInside {
		d.cfg.Metrics.Transition(ctx, "outside")
		d.cfg.Logger.Info().
			Str("region_id", region.ID).
			Float64("distance_m", distanceMeters).
			Msg("region exited")
		d.publishTransition(ctx, events.TypeRegionExited, region, false, distanceMeters)
	}
	return nil
}

// publishTransition emits a transition event plus the status-changed event
// the UI consumes for its live readout. Publication is best-effort.
func (d *Dispatcher) publishTransition(ctx context.Context, t events.Type, region geofence.Region, inside bool, distanceMeters float64) {
	now := time.Now()
	for _, event := range []events.Event{
		{
			Type:           t,
			RegionID:       region.ID,
			Mode:           region.Mode,
			IsInside:       inside,
			DistanceMeters: distanceMeters,
			RadiusMeters:   region.RadiusMeters,
			OccurredAt:     now,
		},
		{
			Type:           events.TypeStatusUpdated,
			RegionID:       region.ID,
			Mode:           region.Mode,
			IsInside:       inside,
			DistanceMeters: distanceMeters,
			RadiusMeters:   region.RadiusMeters,
			OccurredAt:     now,
		},
	} {
		if err := d.cfg.Publisher.Publish(ctx, event); err != nil {
			d.cfg.Logger.Warn().Err(err).Str("event_type", string(event.Type)).Msg("failed to publish event")
		}
	}
}
