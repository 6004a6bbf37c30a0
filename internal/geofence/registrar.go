package geofence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// Registrar errors.
var (
	// ErrRetriesExhausted is returned when all registration attempts failed
	// with retryable errors.
	ErrRetriesExhausted = errors.New("region registration retries exhausted")

	// ErrRegistrationInFlight is returned when Register is called while a
	// registration or deregistration is still running.
	ErrRegistrationInFlight = errors.New("registration already in flight")

	// ErrRegistrationSuperseded is returned when a stop completed while the
	// registration was still waiting on the facility. The late result is
	// discarded rather than applied.
	ErrRegistrationSuperseded = errors.New("registration superseded by stop")
)

// RegistrarState is the registrar lifecycle state.
type RegistrarState int32

const (
	StateIdle RegistrarState = iota
	StateRegistering
	StateActive
	StateDeregistering
	StateFailed
)

// String returns the state name for logging.
func (s RegistrarState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRegistering:
		return "registering"
	case StateActive:
		return "active"
	case StateDeregistering:
		return "deregistering"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StateStore is the subset of proximity persistence the registrar touches:
// the active region and the arrival-history flags it resets on success.
type StateStore interface {
	SetRegion(ctx context.Context, region *Region) error
	Reset(ctx context.Context) error
}

// RegistrarConfig holds configuration for the registrar.
type RegistrarConfig struct {
	Facility Facility
	Store    StateStore
	Logger   zerolog.Logger

	// MaxAttempts is the total number of AddRegion attempts for retryable
	// failures. Default: 3.
	MaxAttempts int

	// RetryDelay is the fixed delay between attempts. Default: 2s.
	RetryDelay time.Duration

	// DeregisterTimeout bounds how long deregistration waits on the
	// facility before local state is force-cleared. Default: 10s.
	DeregisterTimeout time.Duration
}

func (c *RegistrarConfig) applyDefaults() {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = 2 * time.Second
	}
	if c.DeregisterTimeout == 0 {
		c.DeregisterTimeout = 10 * time.Second
	}
}

// Registrar manages the lifecycle of the one platform-monitored region:
// IDLE -> REGISTERING -> {ACTIVE, FAILED}, ACTIVE -> DEREGISTERING -> IDLE.
// Facility calls go through a circuit breaker so a flapping platform service
// degrades the engine to continuous-only monitoring instead of hammering it.
type Registrar struct {
	cfg     RegistrarConfig
	breaker *gobreaker.CircuitBreaker[struct{}]

	mu      sync.Mutex
	state   RegistrarState
	current *Region

	// epoch advances on every Deregister/ForceCleanup. A registration
	// captures it on entry and discards its result if it moved, so a
	// facility call that straggles past a completed stop cannot
	// resurrect the cleared region.
	epoch uint64
}

// NewRegistrar creates a registrar.
func NewRegistrar(cfg RegistrarConfig) *Registrar {
	cfg.applyDefaults()

	r := &Registrar{cfg: cfg, state: StateIdle}
	r.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "geofencing-facility",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			cfg.Logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("facility circuit breaker state changed")
		},
	})
	return r
}

// State returns the current lifecycle state.
func (r *Registrar) State() RegistrarState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Active reports whether a region is registered with the facility.
func (r *Registrar) Active() bool {
	return r.State() == StateActive
}

// Register submits the region to the platform facility, retrying transient
// failures up to MaxAttempts with a fixed delay. Blocks until registered or
// failed; honors ctx cancellation. On success the arrival history is reset
// (a fresh region has none) and the region persisted as current.
func (r *Registrar) Register(ctx context.Context, region Region) error {
	return r.register(ctx, region, true)
}

// Reattach re-submits a region that survived a process restart. Identical to
// Register except the arrival history is preserved, so an alarm already
// fired for this region does not fire again.
func (r *Registrar) Reattach(ctx context.Context, region Region) error {
	return r.register(ctx, region, false)
}

func (r *Registrar) register(ctx context.Context, region Region, resetHistory bool) error {
	if err := region.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	if r.state == StateRegistering || r.state == StateDeregistering {
		r.mu.Unlock()
		return ErrRegistrationInFlight
	}
	r.state = StateRegistering
	epoch := r.epoch
	r.mu.Unlock()

	log := r.cfg.Logger.With().Str("region_id", region.ID).Logger()

	// A missing facility is fatal, no retry.
	if err := r.cfg.Facility.Available(ctx); err != nil {
		r.setState(StateFailed)
		log.Error().Err(err).Msg("geofencing facility unavailable")
		return fmt.Errorf("geofencing facility check: %w", err)
	}

	// Retire whatever the facility is still monitoring; failure here must
	// not block re-registration.
	if err := r.cfg.Facility.RemoveRegion(ctx); err != nil {
		log.Warn().Err(err).Msg("best-effort remove of previous region failed")
	}

	attempts := 0
	operation := func() error {
		attempts++
		_, err := r.breaker.Execute(func() (struct{}, error) {
			return struct{}{}, r.cfg.Facility.AddRegion(ctx, region)
		})
		if err == nil {
			return nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(err)
		}
		if !IsRetryable(err) {
			return backoff.Permanent(err)
		}

		log.Warn().Err(err).Int("attempt", attempts).Msg("region registration attempt failed")
		return err
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewConstantBackOff(r.cfg.RetryDelay),
			uint64(r.cfg.MaxAttempts-1), //nolint:gosec // MaxAttempts is a small positive config value
		),
		ctx,
	)

	if err := backoff.Retry(operation, bo); err != nil {
		if r.superseded(epoch) || ctx.Err() != nil {
			r.abandon(epoch)
			log.Info().Msg("registration retired while in flight, result discarded")
			return ErrRegistrationSuperseded
		}
		// Deviation from strict cleanup: on transient exhaustion the
		// persisted region stays put, so the continuous evaluation path
		// keeps monitoring it without platform-side geofencing. Clearing
		// here would kill that fallback. Fatal facility errors still end
		// in StateFailed with the same retention; see DESIGN.md.
		r.setState(StateFailed)
		log.Error().Err(err).Int("attempts", attempts).Msg("region registration failed")
		if IsRetryable(err) {
			return fmt.Errorf("%w: %d attempts, last error: %w", ErrRetriesExhausted, attempts, err)
		}
		return fmt.Errorf("register region: %w", err)
	}

	// A stop that completed while the facility call was parked wins: the
	// cleared store must not be re-populated. The facility-side
	// registration that just landed is withdrawn best-effort.
	if r.superseded(epoch) || ctx.Err() != nil {
		r.abandon(epoch)
		r.withdrawLate(log)
		return ErrRegistrationSuperseded
	}

	if resetHistory {
		if err := r.cfg.Store.Reset(ctx); err != nil {
			log.Error().Err(err).Msg("failed to reset proximity state after registration")
			return fmt.Errorf("reset proximity state: %w", err)
		}
	}
	if err := r.cfg.Store.SetRegion(ctx, &region); err != nil {
		log.Error().Err(err).Msg("failed to persist registered region")
		return fmt.Errorf("persist region: %w", err)
	}

	r.mu.Lock()
	if r.epoch != epoch {
		r.mu.Unlock()
		// A stop slipped in between persisting and committing; undo the
		// writes it has no way of seeing.
		r.clearStore(ctx, log)
		r.withdrawLate(log)
		return ErrRegistrationSuperseded
	}
	r.state = StateActive
	cp := region
	r.current = &cp
	r.mu.Unlock()

	log.Info().
		Float64("radius_m", region.RadiusMeters).
		Str("mode", string(region.Mode)).
		Int("attempts", attempts).
		Msg("region registered")
	return nil
}

// Deregister withdraws the region from the facility. The facility call is
// bounded by DeregisterTimeout; if it never completes, local state is
// force-cleared anyway so the engine cannot get stuck believing a region is
// active.
func (r *Registrar) Deregister(ctx context.Context) error {
	r.mu.Lock()
	if r.state == StateDeregistering {
		r.mu.Unlock()
		return ErrRegistrationInFlight
	}
	r.state = StateDeregistering
	r.epoch++
	r.mu.Unlock()

	dctx, cancel := context.WithTimeout(ctx, r.cfg.DeregisterTimeout)
	defer cancel()

	err := r.cfg.Facility.RemoveRegion(dctx)
	if err != nil {
		r.cfg.Logger.Warn().Err(err).Msg("facility deregistration failed, force-clearing local state")
	}

	r.clearStore(ctx, r.cfg.Logger)
	r.mu.Lock()
	r.state = StateIdle
	r.current = nil
	r.mu.Unlock()

	if err != nil {
		return fmt.Errorf("deregister region: %w", err)
	}
	r.cfg.Logger.Info().Msg("region deregistered")
	return nil
}

// ForceCleanup unconditionally clears local state and withdraws any pending
// facility registration. Last-resort recovery when normal deregistration
// repeatedly fails.
func (r *Registrar) ForceCleanup(ctx context.Context) {
	r.mu.Lock()
	r.epoch++
	r.mu.Unlock()

	dctx, cancel := context.WithTimeout(ctx, r.cfg.DeregisterTimeout)
	defer cancel()

	if err := r.cfg.Facility.RemoveRegion(dctx); err != nil {
		r.cfg.Logger.Warn().Err(err).Msg("force cleanup: facility remove failed")
	}

	r.clearStore(ctx, r.cfg.Logger)
	r.mu.Lock()
	r.state = StateIdle
	r.current = nil
	r.mu.Unlock()

	r.cfg.Logger.Info().Msg("registrar state force-cleared")
}

func (r *Registrar) setState(s RegistrarState) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

func (r *Registrar) superseded(epoch uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.epoch != epoch
}

// abandon releases the registering latch after a discarded result. When the
// epoch has moved a stop already drove the state; touching it here would
// clobber whatever operation came after.
func (r *Registrar) abandon(epoch uint64) {
	r.mu.Lock()
	if r.epoch == epoch && r.state == StateRegistering {
		r.state = StateIdle
	}
	r.mu.Unlock()
}

// withdrawLate removes a facility registration that landed after a stop had
// already completed. The stop's RemoveRegion ran before this AddRegion
// finished, so the facility is still monitoring the retired region.
func (r *Registrar) withdrawLate(log zerolog.Logger) {
	dctx, cancel := context.WithTimeout(context.Background(), r.cfg.DeregisterTimeout)
	defer cancel()

	if err := r.cfg.Facility.RemoveRegion(dctx); err != nil {
		log.Warn().Err(err).Msg("failed to withdraw superseded registration")
	}
	log.Info().Msg("registration superseded while in flight, result discarded")
}

func (r *Registrar) clearStore(ctx context.Context, log zerolog.Logger) {
	if err := r.cfg.Store.SetRegion(ctx, nil); err != nil {
		log.Error().Err(err).Msg("failed to clear persisted region")
	}
	if err := r.cfg.Store.Reset(ctx); err != nil {
		log.Error().Err(err).Msg("failed to reset proximity state")
	}
}
