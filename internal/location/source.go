package location

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// ErrAlreadyStarted is returned when Start is called on a running source.
var ErrAlreadyStarted = errors.New("location source already started")

// DefaultTiers is the acquisition ladder, best first. Each tier's failure
// moves on to the next tier rather than retrying the same one.
func DefaultTiers() []UpdateRequest {
	return []UpdateRequest{
		{Priority: PriorityHighAccuracy, Interval: 3 * time.Second, FastestInterval: time.Second, MinDisplacementMtr: 1},
		{Priority: PriorityBalanced, Interval: 5 * time.Second, FastestInterval: 2 * time.Second, MinDisplacementMtr: 2},
		{Priority: PriorityLowPower, Interval: 10 * time.Second, FastestInterval: 5 * time.Second, MinDisplacementMtr: 5},
		{Priority: PriorityPassive, Interval: 15 * time.Second, FastestInterval: 10 * time.Second, MinDisplacementMtr: 10},
	}
}

// SourceConfig holds configuration for the location source.
type SourceConfig struct {
	Provider Provider
	Logger   zerolog.Logger

	// Tiers is the degradation ladder; DefaultTiers when empty.
	Tiers []UpdateRequest

	// LivenessInterval is how often the watchdog inspects stream health.
	// Default: 10s.
	LivenessInterval time.Duration

	// StaleWarnAfter is the fix age that triggers a warning. Default: 30s.
	StaleWarnAfter time.Duration

	// StaleRestartAfter is the fix age that triggers an active
	// investigation and stream restart. Default: 120s.
	StaleRestartAfter time.Duration

	// RestartDelay is the initial delay before a forced restart; repeated
	// restarts back off exponentially from here. Default: 15s.
	RestartDelay time.Duration
}

func (c *SourceConfig) applyDefaults() {
	if len(c.Tiers) == 0 {
		c.Tiers = DefaultTiers()
	}
	if c.LivenessInterval == 0 {
		c.LivenessInterval = 10 * time.Second
	}
	if c.StaleWarnAfter == 0 {
		c.StaleWarnAfter = 30 * time.Second
	}
	if c.StaleRestartAfter == 0 {
		c.StaleRestartAfter = 120 * time.Second
	}
	if c.RestartDelay == 0 {
		c.RestartDelay = 15 * time.Second
	}
}

// Source acquires a fix stream from the platform provider, degrading through
// priority tiers on registration failure and self-healing when the stream
// goes silent. GPS streams are observed to die quietly under platform power
// management, so liveness is checked rather than assumed.
type Source struct {
	cfg SourceConfig

	mu         sync.Mutex
	running    bool
	generation int
	cancel     context.CancelFunc
	onFix      func(Fix)
	tierIndex  int
	lastFixAt  time.Time
	restartBO  *backoff.ExponentialBackOff

	restarts atomic.Int64
}

// NewSource creates a location source.
func NewSource(cfg SourceConfig) *Source {
	cfg.applyDefaults()
	return &Source{cfg: cfg}
}

// Start acquires the fix stream and begins liveness supervision. The onFix
// callback is invoked on the provider's delivery goroutine.
func (s *Source) Start(ctx context.Context, onFix func(Fix)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyStarted
	}

	if err := s.cfg.Provider.Available(ctx); err != nil {
		return fmt.Errorf("location provider check: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.generation++
	gen := s.generation
	s.cancel = cancel
	s.onFix = onFix

	if err := s.acquireLocked(runCtx, gen); err != nil {
		cancel()
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.cfg.RestartDelay
	bo.MaxInterval = 4 * s.cfg.RestartDelay
	bo.MaxElapsedTime = 0
	s.restartBO = bo

	s.running = true
	s.lastFixAt = time.Now()

	go s.watchdog(runCtx, gen)
	return nil
}

// Stop tears down the stream. In-flight deliveries that race with Stop are
// discarded via the generation check.
func (s *Source) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.generation++
	cancel := s.cancel
	s.cancel = nil
	s.onFix = nil
	s.mu.Unlock()

	cancel()
	if err := s.cfg.Provider.RemoveUpdates(context.Background()); err != nil {
		s.cfg.Logger.Warn().Err(err).Msg("failed to remove location updates on stop")
	}
}

// Restarts returns how many forced stream restarts have occurred.
func (s *Source) Restarts() int64 {
	return s.restarts.Load()
}

// CurrentTier returns the index of the ladder tier currently in use.
func (s *Source) CurrentTier() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tierIndex
}

// acquireLocked walks the ladder until a tier is granted. Caller holds s.mu.
func (s *Source) acquireLocked(ctx context.Context, gen int) error {
	var lastErr error
	for i, tier := range s.cfg.Tiers {
		err := s.cfg.Provider.RequestUpdates(ctx, tier, s.deliver(gen))
		if err == nil {
			s.tierIndex = i
			s.cfg.Logger.Info().
				Str("priority", tier.Priority.String()).
				Dur("interval", tier.Interval).
				Float64("min_displacement_m", tier.MinDisplacementMtr).
				Msg("location updates engaged")
			return nil
		}
		lastErr = err
		s.cfg.Logger.Warn().Err(err).
			Str("priority", tier.Priority.String()).
			Msg("location tier rejected, degrading")
	}
	return fmt.Errorf("all location tiers rejected: %w", lastErr)
}

// deliver wraps the consumer callback with generation and liveness
// bookkeeping so late deliveries from a stopped stream are dropped.
func (s *Source) deliver(gen int) func(Fix) {
	return func(fix Fix) {
		s.mu.Lock()
		if !s.running || gen != s.generation {
			s.mu.Unlock()
			return
		}
		s.lastFixAt = time.Now()
		if s.restartBO != nil {
			s.restartBO.Reset()
		}
		onFix := s.onFix
		s.mu.Unlock()

		onFix(fix)
	}
}

func (s *Source) watchdog(ctx context.Context, gen int) {
	ticker := time.NewTicker(s.cfg.LivenessInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkLiveness(ctx, gen)
		}
	}
}

func (s *Source) checkLiveness(ctx context.Context, gen int) {
	s.mu.Lock()
	if !s.running || gen != s.generation {
		s.mu.Unlock()
		return
	}
	age := time.Since(s.lastFixAt)
	s.mu.Unlock()

	switch {
	case age > s.cfg.StaleRestartAfter:
		s.cfg.Logger.Error().
			Dur("fix_age", age).
			Msg("location stream stale, investigating")
		s.investigate(ctx, gen)
	case age > s.cfg.StaleWarnAfter:
		s.cfg.Logger.Warn().
			Dur("fix_age", age).
			Msg("no recent location fix")
	}
}

// investigate queries the provider's cached fix; if that is stale too, the
// stream is presumed dead and force-restarted after a backoff delay.
func (s *Source) investigate(ctx context.Context, gen int) {
	last, err := s.cfg.Provider.LastKnown(ctx, PriorityHighAccuracy)
	if err != nil {
		s.cfg.Logger.Warn().Err(err).Msg("last-known location query failed")
	}
	if last != nil && last.Age(time.Now()) <= s.cfg.StaleRestartAfter {
		s.cfg.Logger.Info().Msg("recovered via last-known location")
		s.deliver(gen)(*last)
		return
	}

	s.mu.Lock()
	delay := s.cfg.RestartDelay
	if s.restartBO != nil {
		delay = s.restartBO.NextBackOff()
	}
	s.mu.Unlock()

	s.cfg.Logger.Warn().
		Dur("delay", delay).
		Msg("location stream presumed dead, scheduling restart")

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	s.restart(ctx, gen)
}

func (s *Source) restart(ctx context.Context, gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || gen != s.generation {
		return
	}

	if err := s.cfg.Provider.RemoveUpdates(ctx); err != nil {
		s.cfg.Logger.Warn().Err(err).Msg("failed to remove updates before restart")
	}

	if err := s.acquireLocked(ctx, gen); err != nil {
		s.cfg.Logger.Error().Err(err).Msg("location stream restart failed")
		return
	}

	s.lastFixAt = time.Now()
	s.restarts.Add(1)
	s.cfg.Logger.Info().Int64("restarts", s.restarts.Load()).Msg("location stream restarted")
}
