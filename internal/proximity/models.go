// Package proximity persists the inside/outside and alarm bookkeeping for
// the active geofence region.
package proximity

import "github.com/proxwake/proxwake/internal/geofence"

// State is the persisted proximity bookkeeping. It is the single source of
// truth for "was the user already alerted for this arrival".
//
// Invariant: AlarmFired is only true while IsInside is true and the active
// region is unchanged. Both reset whenever a region is (re)created.
type State struct {
	IsInside   bool             `json:"isInside"`
	AlarmFired bool             `json:"alarmFired"`
	Region     *geofence.Region `json:"region,omitempty"`
}
