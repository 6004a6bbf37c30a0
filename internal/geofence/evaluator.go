package geofence

import (
	"github.com/rs/zerolog"

	"github.com/proxwake/proxwake/internal/location"
	"github.com/proxwake/proxwake/pkg/geo"
)

// Hysteresis factors. Exiting is stickier than entering, which damps
// inside/outside flapping when the device hovers near the boundary.
const (
	hysteresisInsideFactor  = 0.10
	hysteresisOutsideFactor = 0.05
)

// poorAccuracyBufferMeters is the fixed slack for very poor fixes. An
// unbounded accuracy-proportional buffer would let a single bad reading
// produce a false arrival.
const poorAccuracyBufferMeters = 10.0

// Verdict is the outcome of one proximity evaluation.
type Verdict struct {
	Inside           bool
	DistanceMeters   float64
	EffectiveRadius  float64
	AccuracyBuffer   float64
	HysteresisBuffer float64
}

// Evaluator computes robust inside/outside verdicts for a region. Pure
// computation; the only side effect is diagnostic logging.
type Evaluator struct {
	logger zerolog.Logger
}

// NewEvaluator creates an evaluator.
func NewEvaluator(logger zerolog.Logger) *Evaluator {
	return &Evaluator{logger: logger}
}

// Evaluate is the continuous-path check: distance against the region radius
// widened by an accuracy buffer and a state-dependent hysteresis buffer.
func (e *Evaluator) Evaluate(fix location.Fix, region Region, wasInside bool) Verdict {
	hysteresis := -region.RadiusMeters * hysteresisOutsideFactor
	if wasInside {
		hysteresis = region.RadiusMeters * hysteresisInsideFactor
	}
	return e.evaluate(fix, region, hysteresis)
}

// EvaluateConfirmed is the platform-confirmed path: the facility's own
// dwell handling supplies the stickiness, so only the accuracy buffer
// applies. Used to sanity-check transitions the platform reports.
func (e *Evaluator) EvaluateConfirmed(fix location.Fix, region Region) Verdict {
	return e.evaluate(fix, region, 0)
}

func (e *Evaluator) evaluate(fix location.Fix, region Region, hysteresis float64) Verdict {
	distance := geo.Distance(fix.Point(), region.Center)
	accBuffer := accuracyBuffer(fix.AccuracyMeters)
	effective := region.RadiusMeters + accBuffer + hysteresis

	v := Verdict{
		Inside:           distance <= effective,
		DistanceMeters:   distance,
		EffectiveRadius:  effective,
		AccuracyBuffer:   accBuffer,
		HysteresisBuffer: hysteresis,
	}

	e.logger.Debug().
		Str("region_id", region.ID).
		Bool("inside", v.Inside).
		Float64("distance_m", v.DistanceMeters).
		Float64("effective_radius_m", v.EffectiveRadius).
		Float64("accuracy_buffer_m", v.AccuracyBuffer).
		Float64("hysteresis_buffer_m", v.HysteresisBuffer).
		Msg("proximity evaluated")

	return v
}

// accuracyBuffer converts fix accuracy into radius slack. Precise fixes need
// little; moderately poor fixes scale up; beyond 50m the slack is capped at
// a small fixed value.
func accuracyBuffer(accuracyMeters float64) float64 {
	switch {
	case accuracyMeters <= 5:
		return accuracyMeters * 0.5
	case accuracyMeters <= 15:
		return accuracyMeters * 0.8
	case accuracyMeters <= 30:
		return accuracyMeters
	case accuracyMeters <= 50:
		return accuracyMeters * 0.8
	default:
		return poorAccuracyBufferMeters
	}
}
