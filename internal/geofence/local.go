package geofence

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/proxwake/proxwake/internal/location"
	"github.com/proxwake/proxwake/pkg/geo"
)

// LocalFacility is an in-process Facility: a software geofence that watches
// observed fixes itself and emits transitions. It stands in for the platform
// geofencing service in server deployments where fixes are relayed to the
// engine, and gives the dispatcher a second, independently timed transition
// source exactly like a platform broadcast would.
//
// The facility applies no accuracy or hysteresis buffers; like its platform
// counterpart it checks the raw radius and handles stickiness through dwell.
type LocalFacility struct {
	logger zerolog.Logger

	mu           sync.Mutex
	region       *Region
	inside       bool
	insideSince  time.Time
	dwellEmitted bool
	onTransition func(Transition)
}

// NewLocalFacility creates a local software geofencing facility.
func NewLocalFacility(logger zerolog.Logger) *LocalFacility {
	return &LocalFacility{logger: logger}
}

// SetTransitionHandler registers the consumer for emitted transitions.
// Transitions are delivered synchronously on the Observe caller's goroutine.
func (l *LocalFacility) SetTransitionHandler(fn func(Transition)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onTransition = fn
}

// Available implements Facility.
func (l *LocalFacility) Available(_ context.Context) error { return nil }

// AddRegion implements Facility.
func (l *LocalFacility) AddRegion(_ context.Context, region Region) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := region
	l.region = &cp
	l.inside = false
	l.dwellEmitted = false
	l.logger.Debug().Str("region_id", region.ID).Msg("local facility monitoring region")
	return nil
}

// RemoveRegion implements Facility.
func (l *LocalFacility) RemoveRegion(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.region = nil
	l.inside = false
	l.dwellEmitted = false
	return nil
}

// Observe feeds a fix into the software geofence. Crossing the raw radius
// emits an enter or exit transition; remaining inside past the region's
// dwell time emits a one-shot dwell transition.
func (l *LocalFacility) Observe(fix location.Fix) {
	l.mu.Lock()
	region := l.region
	if region == nil {
		l.mu.Unlock()
		return
	}

	nowInside := geo.Distance(fix.Point(), region.Center) <= region.RadiusMeters

	var emit *Transition
	switch {
	case nowInside && !l.inside:
		l.inside = true
		l.insideSince = fix.Timestamp
		l.dwellEmitted = false
		emit = &Transition{Type: TransitionEnter, RegionIDs: []string{region.ID}, TriggeringFix: &fix}
	case !nowInside && l.inside:
		l.inside = false
		l.dwellEmitted = false
		emit = &Transition{Type: TransitionExit, RegionIDs: []string{region.ID}, TriggeringFix: &fix}
	case nowInside && !l.dwellEmitted && region.DwellTime > 0 &&
		fix.Timestamp.Sub(l.insideSince) >= region.DwellTime:
		l.dwellEmitted = true
		emit = &Transition{Type: TransitionDwell, RegionIDs: []string{region.ID}, TriggeringFix: &fix}
	}
	onTransition := l.onTransition
	l.mu.Unlock()

	if emit != nil && onTransition != nil {
		l.logger.Debug().
			Str("transition", emit.Type.String()).
			Str("region_id", region.ID).
			Msg("local facility transition")
		onTransition(*emit)
	}
}
