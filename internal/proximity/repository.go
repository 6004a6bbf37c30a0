package proximity

import (
	"context"

	"github.com/proxwake/proxwake/internal/geofence"
)

// Repository provides durable storage for proximity state. Writes must be
// visible to subsequent reads immediately; multiple callback goroutines race
// on this state, so implementations must be safe for concurrent use. Each
// operation is a single field read or write, no cross-operation transaction
// is required.
type Repository interface {
	// IsInside reports the persisted inside/outside flag.
	IsInside(ctx context.Context) (bool, error)

	// SetInside updates the inside/outside flag.
	SetInside(ctx context.Context, inside bool) error

	// AlarmFired reports whether the arrival alarm has already fired for
	// the active region.
	AlarmFired(ctx context.Context) (bool, error)

	// SetAlarmFired updates the alarm-fired flag.
	SetAlarmFired(ctx context.Context, fired bool) error

	// Region returns the active region, or nil when none is set.
	Region(ctx context.Context) (*geofence.Region, error)

	// SetRegion replaces the active region; nil clears it.
	SetRegion(ctx context.Context, region *geofence.Region) error

	// Reset clears IsInside and AlarmFired. Called whenever a region is
	// (re)created, since a fresh region has no arrival history.
	Reset(ctx context.Context) error
}
