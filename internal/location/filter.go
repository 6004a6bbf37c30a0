package location

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Significance thresholds for raw fix filtering. A raw GPS stream delivers
// far more fixes than the proximity check needs; the filter keeps the ones
// that carry new information.
const (
	// accuracyImprovementMeters is the minimum accuracy gain that makes a
	// fix worth processing regardless of movement.
	accuracyImprovementMeters = 2.0

	// refreshInterval forces a fix through periodically even when the
	// device is stationary, so staleness detection keeps working.
	refreshInterval = 10 * time.Second

	// materialMovementMeters always passes the filter.
	materialMovementMeters = 3.0

	// goodAccuracyMeters paired with modestMovementMeters passes.
	goodAccuracyMeters   = 25.0
	modestMovementMeters = 1.0

	// excellentAccuracyMeters passes regardless of movement.
	excellentAccuracyMeters = 10.0

	// minimumMovementMeters is the floor below which a fix is jitter.
	minimumMovementMeters = 0.5
)

// Filter decides which raw fixes are significant enough to propagate to the
// proximity evaluator. It holds the previously accepted fix; Accept is safe
// for concurrent use.
type Filter struct {
	logger zerolog.Logger

	mu       sync.Mutex
	previous *Fix
}

// NewFilter creates a significance filter with no history.
func NewFilter(logger zerolog.Logger) *Filter {
	return &Filter{logger: logger}
}

// Accept reports whether the candidate fix should be processed. An accepted
// candidate becomes the reference for the next evaluation.
func (f *Filter) Accept(candidate Fix) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	accepted, reason := decide(f.previous, candidate)

	f.logger.Debug().
		Bool("accepted", accepted).
		Str("reason", reason).
		Float64("accuracy_m", candidate.AccuracyMeters).
		Msg("fix filtered")

	if accepted {
		c := candidate
		f.previous = &c
	}
	return accepted
}

// Previous returns the most recently accepted fix, or nil before the first.
func (f *Filter) Previous() *Fix {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.previous
}

// Reset discards the filter history so the next fix is always accepted.
func (f *Filter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.previous = nil
}

// decide applies the significance rules in order; the first match wins.
func decide(previous *Fix, candidate Fix) (bool, string) {
	if previous == nil {
		return true, "first_fix"
	}

	if candidate.AccuracyMeters < previous.AccuracyMeters-accuracyImprovementMeters {
		return true, "accuracy_improved"
	}

	if candidate.Timestamp.Sub(previous.Timestamp) > refreshInterval {
		return true, "periodic_refresh"
	}

	distance := previous.DistanceTo(candidate)

	if distance >= materialMovementMeters {
		return true, "material_movement"
	}

	if candidate.AccuracyMeters <= goodAccuracyMeters && distance >= modestMovementMeters {
		return true, "good_fix_movement"
	}

	if candidate.AccuracyMeters <= excellentAccuracyMeters {
		return true, "excellent_accuracy"
	}

	if distance >= minimumMovementMeters {
		return true, "minimum_movement"
	}

	return false, "jitter"
}
