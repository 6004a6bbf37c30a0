// Package prefs stores user preferences consumed by the monitoring engine.
package prefs

import (
	"context"

	"github.com/proxwake/proxwake/internal/geofence"
)

// Repository is a simple synchronous key-value preference store.
type Repository interface {
	// RadiusMeters returns the user's alarm radius preference, falling
	// back to geofence.DefaultRadiusMeters when unset.
	RadiusMeters(ctx context.Context) (float64, error)
	SetRadiusMeters(ctx context.Context, radius float64) error

	// VoiceEnabled reports whether spoken announcements are enabled.
	VoiceEnabled(ctx context.Context) (bool, error)
	SetVoiceEnabled(ctx context.Context, enabled bool) error

	// NavigationActive reports whether an active navigation session is
	// running, which decides the region mode for new pins.
	NavigationActive(ctx context.Context) (bool, error)
	SetNavigationActive(ctx context.Context, active bool) error
}

// defaultRadius is re-exported to keep the fallback in one place.
const defaultRadius = geofence.DefaultRadiusMeters
