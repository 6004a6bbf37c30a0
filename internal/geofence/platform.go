package geofence

import (
	"context"
	"errors"
	"fmt"

	"github.com/proxwake/proxwake/internal/location"
)

// Fatal facility errors. These surface immediately without retry; the engine
// falls back to continuous evaluation without platform geofencing.
var (
	// ErrFacilityMissing indicates the platform has no geofencing support
	// component at all.
	ErrFacilityMissing = errors.New("geofencing facility missing")

	// ErrPermissionDenied indicates the background-location permission is
	// not granted.
	ErrPermissionDenied = errors.New("location permission denied")
)

// Retryable facility errors.
var (
	// ErrFacilityBusy indicates the facility is temporarily unavailable.
	ErrFacilityBusy = errors.New("geofencing facility temporarily unavailable")
)

// TransitionType is the kind of region transition the facility reports.
type TransitionType int

const (
	TransitionEnter TransitionType = iota
	TransitionExit
	TransitionDwell
)

// String returns the transition name for logging and events.
func (t TransitionType) String() string {
	switch t {
	case TransitionEnter:
		return "enter"
	case TransitionExit:
		return "exit"
	case TransitionDwell:
		return "dwell"
	default:
		return "unknown"
	}
}

// Transition is a region transition delivered by the platform facility.
// Delivery is at-least-once with no ordering guarantee relative to the
// continuous location stream; consumers must tolerate duplicates.
type Transition struct {
	Type          TransitionType
	RegionIDs     []string
	TriggeringFix *location.Fix
}

// Facility is the boundary to the platform geofencing service. All calls are
// asynchronous on the platform side; the Go boundary exposes them as
// context-aware blocking calls so cancellation is explicit.
type Facility interface {
	// Available reports whether the facility can accept regions.
	Available(ctx context.Context) error

	// AddRegion submits a region for platform-side monitoring.
	AddRegion(ctx context.Context, region Region) error

	// RemoveRegion withdraws the currently monitored region.
	RemoveRegion(ctx context.Context) error
}

// FacilityError wraps a facility failure with an explicit retryability
// class, for platforms that report coded errors.
type FacilityError struct {
	Code      string
	Retryable bool
	Err       error
}

func (e *FacilityError) Error() string {
	return fmt.Sprintf("geofencing facility error %s: %v", e.Code, e.Err)
}

func (e *FacilityError) Unwrap() error { return e.Err }

// IsRetryable classifies a facility failure. Fatal classes are permission
// denial and missing platform support; everything else (busy facility,
// network hiccups, timeouts) is worth retrying.
func IsRetryable(err error) bool {
	var fe *FacilityError
	if errors.As(err, &fe) {
		return fe.Retryable
	}
	if errors.Is(err, ErrFacilityMissing) || errors.Is(err, ErrPermissionDenied) {
		return false
	}
	return true
}
