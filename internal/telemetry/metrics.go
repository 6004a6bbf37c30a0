package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// EngineMetrics holds the monitoring engine's counters. A nil *EngineMetrics
// is valid and records nothing, so components can take it optionally.
type EngineMetrics struct {
	fixesAccepted      metric.Int64Counter
	fixesRejected      metric.Int64Counter
	transitions        metric.Int64Counter
	alarmsFired        metric.Int64Counter
	registrationErrors metric.Int64Counter
}

// NewEngineMetrics registers the engine counters on the given meter.
func NewEngineMetrics(meter metric.Meter) (*EngineMetrics, error) {
	var m EngineMetrics
	var err error

	if m.fixesAccepted, err = meter.Int64Counter("engine.fixes.accepted",
		metric.WithDescription("Location fixes that passed the significance filter")); err != nil {
		return nil, err
	}
	if m.fixesRejected, err = meter.Int64Counter("engine.fixes.rejected",
		metric.WithDescription("Location fixes rejected as jitter")); err != nil {
		return nil, err
	}
	if m.transitions, err = meter.Int64Counter("engine.transitions",
		metric.WithDescription("Verified region transitions, labeled by direction")); err != nil {
		return nil, err
	}
	if m.alarmsFired, err = meter.Int64Counter("engine.alarms.fired",
		metric.WithDescription("Arrival alarms dispatched")); err != nil {
		return nil, err
	}
	if m.registrationErrors, err = meter.Int64Counter("engine.registration.errors",
		metric.WithDescription("Failed platform region registrations")); err != nil {
		return nil, err
	}

	return &m, nil
}

// FixAccepted records an accepted fix.
func (m *EngineMetrics) FixAccepted(ctx context.Context) {
	if m == nil {
		return
	}
	m.fixesAccepted.Add(ctx, 1)
}

// FixRejected records a rejected fix.
func (m *EngineMetrics) FixRejected(ctx context.Context) {
	if m == nil {
		return
	}
	m.fixesRejected.Add(ctx, 1)
}

// Transition records a verified transition in the given direction.
func (m *EngineMetrics) Transition(ctx context.Context, direction string) {
	if m == nil {
		return
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("direction", direction)))
}

// AlarmFired records a dispatched arrival alarm.
func (m *EngineMetrics) AlarmFired(ctx context.Context) {
	if m == nil {
		return
	}
	m.alarmsFired.Add(ctx, 1)
}

// RegistrationError records a failed platform registration.
func (m *EngineMetrics) RegistrationError(ctx context.Context) {
	if m == nil {
		return
	}
	m.registrationErrors.Add(ctx, 1)
}
