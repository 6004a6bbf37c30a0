// Package events carries broadcast-style engine events to UI and downstream
// consumers.
package events

import (
	"context"
	"time"

	"github.com/proxwake/proxwake/internal/geofence"
)

// Type identifies an engine event.
type Type string

const (
	// TypeRegionEntered fires on a verified outside-to-inside transition.
	TypeRegionEntered Type = "region.entered"

	// TypeRegionExited fires on a verified inside-to-outside transition.
	TypeRegionExited Type = "region.exited"

	// TypeStatusUpdated fires on every evaluated fix so the UI can render
	// a live distance readout.
	TypeStatusUpdated Type = "status.updated"
)

// Event is one broadcast engine event.
type Event struct {
	Type           Type          `json:"type"`
	RegionID       string        `json:"regionId,omitempty"`
	Mode           geofence.Mode `json:"mode,omitempty"`
	IsInside       bool          `json:"isInside"`
	DistanceMeters float64       `json:"distanceMeters"`
	RadiusMeters   float64       `json:"radiusMeters"`
	OccurredAt     time.Time     `json:"occurredAt"`
}

// Publisher delivers engine events. Delivery is best-effort; the monitoring
// state machine never depends on publication succeeding.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
