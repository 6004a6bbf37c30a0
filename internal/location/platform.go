package location

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Platform errors.
var (
	// ErrProviderUnavailable indicates the platform location facility
	// cannot serve updates at all (disabled, missing, or denied).
	ErrProviderUnavailable = errors.New("location provider unavailable")

	// ErrTierRejected indicates the provider rejected a specific update
	// request tier; the source degrades to the next tier.
	ErrTierRejected = errors.New("update request tier rejected")
)

// Priority is a platform location request power/accuracy tier.
type Priority int

const (
	PriorityHighAccuracy Priority = iota
	PriorityBalanced
	PriorityLowPower
	PriorityPassive
)

// String returns the tier name for logging.
func (p Priority) String() string {
	switch p {
	case PriorityHighAccuracy:
		return "high_accuracy"
	case PriorityBalanced:
		return "balanced"
	case PriorityLowPower:
		return "low_power"
	case PriorityPassive:
		return "passive"
	default:
		return "unknown"
	}
}

// UpdateRequest describes one tier of the acquisition ladder.
type UpdateRequest struct {
	Priority           Priority
	Interval           time.Duration
	FastestInterval    time.Duration
	MinDisplacementMtr float64
}

// Provider is the boundary to the platform location facility. Implementations
// deliver fixes asynchronously on their own goroutines; callbacks registered
// through RequestUpdates remain live until RemoveUpdates.
type Provider interface {
	// Available reports whether the facility can serve updates at all.
	Available(ctx context.Context) error

	// RequestUpdates subscribes the callback to the fix stream described by
	// the request. Returns ErrTierRejected when this tier cannot be served.
	RequestUpdates(ctx context.Context, req UpdateRequest, onFix func(Fix)) error

	// RemoveUpdates unsubscribes the current callback.
	RemoveUpdates(ctx context.Context) error

	// LastKnown returns the most recent fix the facility has cached, or nil.
	LastKnown(ctx context.Context, priority Priority) (*Fix, error)
}

// PushProvider is a Provider fed by an external caller, used when fixes are
// relayed to the engine (for example over the ingest API) instead of read
// from device hardware. It honors the granted tier's fastest-interval and
// minimum-displacement constraints before forwarding.
type PushProvider struct {
	mu        sync.Mutex
	onFix     func(Fix)
	req       UpdateRequest
	lastSent  *Fix
	available bool
}

// NewPushProvider creates a push-fed provider.
func NewPushProvider() *PushProvider {
	return &PushProvider{available: true}
}

// SetAvailable toggles facility availability, mirrors the platform's
// location-services switch.
func (p *PushProvider) SetAvailable(ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.available = ok
}

// Available implements Provider.
func (p *PushProvider) Available(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.available {
		return ErrProviderUnavailable
	}
	return nil
}

// RequestUpdates implements Provider.
func (p *PushProvider) RequestUpdates(_ context.Context, req UpdateRequest, onFix func(Fix)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.available {
		return ErrProviderUnavailable
	}
	p.req = req
	p.onFix = onFix
	p.lastSent = nil
	return nil
}

// RemoveUpdates implements Provider.
func (p *PushProvider) RemoveUpdates(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onFix = nil
	p.lastSent = nil
	return nil
}

// LastKnown implements Provider.
func (p *PushProvider) LastKnown(_ context.Context, _ Priority) (*Fix, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSent, nil
}

// Push feeds a fix into the provider. Fixes arriving faster than the granted
// tier's fastest interval, or closer than its minimum displacement, are
// dropped. Returns whether the fix was forwarded.
func (p *PushProvider) Push(fix Fix) bool {
	p.mu.Lock()
	onFix := p.onFix
	if onFix == nil {
		p.mu.Unlock()
		return false
	}
	if p.lastSent != nil {
		elapsed := fix.Timestamp.Sub(p.lastSent.Timestamp)
		if elapsed < p.req.FastestInterval {
			p.mu.Unlock()
			return false
		}
		// Small movements are dropped until the regular interval elapses.
		if elapsed < p.req.Interval && p.lastSent.DistanceTo(fix) < p.req.MinDisplacementMtr {
			p.mu.Unlock()
			return false
		}
	}
	f := fix
	p.lastSent = &f
	p.mu.Unlock()

	onFix(fix)
	return true
}
