// Package location provides GPS fix acquisition and significance filtering.
package location

import (
	"time"

	"github.com/proxwake/proxwake/pkg/geo"
)

// Fix is a single GPS reading. Fixes are immutable once produced; only the
// most recent accepted fix is ever retained.
type Fix struct {
	Lat            float64
	Lon            float64
	AccuracyMeters float64
	Timestamp      time.Time

	// Optional fields, nil when the provider did not report them.
	SpeedMPS       *float64
	BearingDegrees *float64
	Provider       string
}

// Point returns the fix coordinates.
func (f Fix) Point() geo.Point {
	return geo.Point{Lat: f.Lat, Lon: f.Lon}
}

// DistanceTo returns the great-circle distance to another fix in meters.
func (f Fix) DistanceTo(other Fix) float64 {
	return geo.Distance(f.Point(), other.Point())
}

// Age returns how old the fix is relative to now.
func (f Fix) Age(now time.Time) time.Duration {
	return now.Sub(f.Timestamp)
}
