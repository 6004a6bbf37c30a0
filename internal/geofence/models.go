// Package geofence provides circular-region modeling, the inside/outside
// evaluator, and registration with the platform geofencing facility.
package geofence

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/proxwake/proxwake/pkg/geo"
)

// Mode is the monitoring mode for a region; it decides the alarm framing.
type Mode string

const (
	// ModePassive watches a pinned location without active navigation.
	ModePassive Mode = "PASSIVE"

	// ModeActiveNavigation watches the destination of an active trip.
	ModeActiveNavigation Mode = "ACTIVE_NAVIGATION"
)

// DefaultRadiusMeters is the region radius used when the user has not set one.
const DefaultRadiusMeters = 100.0

// DefaultDwellTime is how long a device must stay inside before the platform
// facility reports a dwell transition.
const DefaultDwellTime = 30 * time.Second

// ErrInvalidRegion is returned when region parameters are out of bounds.
var ErrInvalidRegion = errors.New("invalid region")

// Region is a circular geofence around a pinned destination. Exactly one
// region is active at a time; creating a new one retires the previous.
// Regions never expire on their own.
type Region struct {
	ID           string        `json:"id"`
	Center       geo.Point     `json:"center"`
	RadiusMeters float64       `json:"radiusMeters"`
	Mode         Mode          `json:"mode"`
	DwellTime    time.Duration `json:"dwellTime"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// NewRegion creates a region around the given center. A non-positive radius
// falls back to DefaultRadiusMeters.
func NewRegion(center geo.Point, radiusMeters float64, mode Mode) Region {
	if radiusMeters <= 0 {
		radiusMeters = DefaultRadiusMeters
	}
	if mode == "" {
		mode = ModePassive
	}
	return Region{
		ID:           "gfr_" + uuid.New().String()[:22],
		Center:       center,
		RadiusMeters: radiusMeters,
		Mode:         mode,
		DwellTime:    DefaultDwellTime,
		CreatedAt:    time.Now(),
	}
}

// Validate checks region parameters.
func (r Region) Validate() error {
	if !r.Center.Valid() {
		return fmt.Errorf("%w: center out of coordinate bounds", ErrInvalidRegion)
	}
	if r.RadiusMeters <= 0 {
		return fmt.Errorf("%w: radius must be positive", ErrInvalidRegion)
	}
	if r.Mode != ModePassive && r.Mode != ModeActiveNavigation {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidRegion, r.Mode)
	}
	return nil
}
