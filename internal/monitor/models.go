// Package monitor is the proximity monitoring engine: it merges the
// continuous evaluation path and platform geofence transitions into one
// persisted state and dispatches the arrival alarm exactly once per arrival.
package monitor

import (
	"github.com/proxwake/proxwake/internal/geofence"
)

// Status is the engine snapshot exposed to the UI layer.
type Status struct {
	HasRegion      bool             `json:"hasRegion"`
	Region         *geofence.Region `json:"region,omitempty"`
	RadiusMeters   float64          `json:"radiusMeters"`
	IsActive       bool             `json:"isActive"`
	IsInside       bool             `json:"isInside"`
	DistanceMeters *float64         `json:"distanceMeters,omitempty"`
	RegistrarState string           `json:"registrarState"`
}
