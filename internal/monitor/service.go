package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/proxwake/proxwake/internal/alarm"
	"github.com/proxwake/proxwake/internal/events"
	"github.com/proxwake/proxwake/internal/geofence"
	"github.com/proxwake/proxwake/internal/location"
	"github.com/proxwake/proxwake/internal/prefs"
	"github.com/proxwake/proxwake/internal/proximity"
	"github.com/proxwake/proxwake/internal/telemetry"
	"github.com/proxwake/proxwake/pkg/geo"
)

// Service errors.
var (
	ErrInvalidCenter = errors.New("region center out of coordinate bounds")
	ErrInvalidRadius = errors.New("radius must be positive")
	ErrNotMonitoring = errors.New("no active monitoring session")
)

// ServiceConfig holds the engine's collaborators.
type ServiceConfig struct {
	Source     *location.Source
	Filter     *location.Filter
	Evaluator  *geofence.Evaluator
	Registrar  *geofence.Registrar
	Repo       proximity.Repository
	Prefs      prefs.Repository
	Dispatcher *Dispatcher
	Announcer  *alarm.Announcer
	Publisher  events.Publisher
	Logger     zerolog.Logger
	Metrics    *telemetry.EngineMetrics
}

// Service is the engine facade the UI layer talks to. It owns the lifecycle
// of the one active region: the continuous pipeline (source -> filter ->
// evaluator -> dispatcher) and the platform registration that delivers the
// second, independent transition stream.
type Service struct {
	cfg ServiceConfig

	mu           sync.Mutex
	active       bool
	cancel       context.CancelFunc
	runCtx       context.Context
	lastDistance *float64
}

// NewService creates the engine facade.
func NewService(cfg ServiceConfig) *Service {
	return &Service{cfg: cfg}
}

// StartMonitoring pins a region around the center and begins monitoring it.
// An existing session is retired first; exactly one region is ever active.
// The radius comes from the user preference, the mode from the navigation
// flag unless explicitly given. Platform registration runs asynchronously;
// its failure degrades to continuous-only monitoring instead of blocking
// the caller.
func (s *Service) StartMonitoring(ctx context.Context, center geo.Point, mode geofence.Mode) (geofence.Region, error) {
	if !center.Valid() {
		return geofence.Region{}, ErrInvalidCenter
	}

	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		if err := s.StopMonitoring(ctx); err != nil {
			s.cfg.Logger.Warn().Err(err).Msg("retiring previous region reported an error")
		}
		s.mu.Lock()
	}
	defer s.mu.Unlock()

	radius, err := s.cfg.Prefs.RadiusMeters(ctx)
	if err != nil {
		s.cfg.Logger.Warn().Err(err).Msg("radius preference unavailable, using default")
		radius = geofence.DefaultRadiusMeters
	}

	if mode == "" {
		navActive, perr := s.cfg.Prefs.NavigationActive(ctx)
		if perr != nil {
			s.cfg.Logger.Warn().Err(perr).Msg("navigation preference unavailable")
		}
		mode = geofence.ModePassive
		if navActive {
			mode = geofence.ModeActiveNavigation
		}
	}

	region := geofence.NewRegion(center, radius, mode)

	// Persist the region and wipe arrival history before anything
	// asynchronous runs, so the continuous path monitors it even when
	// platform registration later fails.
	if err := s.cfg.Repo.SetRegion(ctx, &region); err != nil {
		return geofence.Region{}, fmt.Errorf("persist region: %w", err)
	}
	if err := s.cfg.Repo.Reset(ctx); err != nil {
		return geofence.Region{}, fmt.Errorf("reset proximity state: %w", err)
	}

	s.cfg.Filter.Reset()
	s.lastDistance = nil

	runCtx, cancel := context.WithCancel(context.Background())
	s.runCtx = runCtx
	s.cancel = cancel

	if err := s.cfg.Source.Start(runCtx, s.handleFix); err != nil {
		s.cfg.Logger.Error().Err(err).Msg("location stream unavailable, relying on platform geofencing only")
	}

	go func() {
		err := s.cfg.Registrar.Register(runCtx, region)
		switch {
		case err == nil:
		case errors.Is(err, geofence.ErrRegistrationSuperseded):
			// The session was stopped or replaced before the facility
			// answered; nothing to report.
		default:
			s.cfg.Metrics.RegistrationError(runCtx)
			s.cfg.Logger.Warn().Err(err).
				Str("region_id", region.ID).
				Msg("platform registration failed, continuous monitoring only")
		}
	}()

	s.active = true

	s.cfg.Logger.Info().
		Str("region_id", region.ID).
		Float64("radius_m", region.RadiusMeters).
		Str("mode", string(region.Mode)).
		Msg("monitoring started")

	s.publishStatus(ctx, &region, false, nil)
	return region, nil
}

// Resume picks up a region persisted by an earlier process. Called once at
// startup; does nothing when no region survived. Arrival history is kept so
// an alarm already fired for this region does not fire again.
func (s *Service) Resume(ctx context.Context) error {
	region, err := s.cfg.Repo.Region(ctx)
	if err != nil {
		return fmt.Errorf("read persisted region: %w", err)
	}
	if region == nil {
		return nil
	}

	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return nil
	}

	s.cfg.Filter.Reset()
	s.lastDistance = nil

	runCtx, cancel := context.WithCancel(context.Background())
	s.runCtx = runCtx
	s.cancel = cancel

	if err := s.cfg.Source.Start(runCtx, s.handleFix); err != nil {
		s.cfg.Logger.Error().Err(err).Msg("location stream unavailable on resume")
	}

	resumed := *region
	go func() {
		err := s.cfg.Registrar.Reattach(runCtx, resumed)
		if err != nil && !errors.Is(err, geofence.ErrRegistrationSuperseded) {
			s.cfg.Metrics.RegistrationError(runCtx)
			s.cfg.Logger.Warn().Err(err).
				Str("region_id", resumed.ID).
				Msg("platform re-registration on resume failed")
		}
	}()

	s.active = true
	s.mu.Unlock()

	s.cfg.Logger.Info().
		Str("region_id", region.ID).
		Float64("radius_m", region.RadiusMeters).
		Msg("monitoring resumed from persisted state")
	return nil
}

// StopMonitoring retires the active region: the location stream stops, the
// platform registration is withdrawn, any playing alarm is silenced, and
// the persisted state cleared.
func (s *Service) StopMonitoring(ctx context.Context) error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return ErrNotMonitoring
	}
	s.active = false
	cancel := s.cancel
	s.cancel = nil
	s.runCtx = nil
	s.lastDistance = nil
	s.mu.Unlock()

	s.cfg.Source.Stop()
	cancel()

	// Deregister clears the persisted region and flags; on facility
	// timeout it force-clears local state so we never stay stuck.
	if err := s.cfg.Registrar.Deregister(ctx); err != nil {
		s.cfg.Logger.Warn().Err(err).Msg("deregistration reported an error")
	}

	s.cfg.Announcer.Silence(ctx)
	s.cfg.Filter.Reset()

	s.cfg.Logger.Info().Msg("monitoring stopped")
	s.publishStatus(ctx, nil, false, nil)
	return nil
}

// UpdateRadius stores the new radius preference and, when a session is
// active, re-creates the region with the new radius. Re-creation wipes the
// arrival history, matching region semantics.
func (s *Service) UpdateRadius(ctx context.Context, radiusMeters float64) error {
	if radiusMeters <= 0 {
		return ErrInvalidRadius
	}

	if err := s.cfg.Prefs.SetRadiusMeters(ctx, radiusMeters); err != nil {
		return fmt.Errorf("store radius preference: %w", err)
	}

	s.mu.Lock()
	active := s.active
	runCtx := s.runCtx
	s.mu.Unlock()

	if !active {
		return nil
	}

	region, err := s.cfg.Repo.Region(ctx)
	if err != nil {
		return fmt.Errorf("read active region: %w", err)
	}
	if region == nil {
		return nil
	}

	region.RadiusMeters = radiusMeters
	if err := s.cfg.Repo.SetRegion(ctx, region); err != nil {
		return fmt.Errorf("persist resized region: %w", err)
	}
	if err := s.cfg.Repo.Reset(ctx); err != nil {
		return fmt.Errorf("reset proximity state: %w", err)
	}

	resized := *region
	go func() {
		if err := s.cfg.Registrar.Register(runCtx, resized); err != nil {
			s.cfg.Metrics.RegistrationError(runCtx)
			s.cfg.Logger.Warn().Err(err).Msg("re-registration after radius change failed")
		}
	}()

	s.cfg.Logger.Info().Float64("radius_m", radiusMeters).Msg("region radius updated")
	s.publishStatus(ctx, region, false, nil)
	return nil
}

// CurrentStatus returns the engine snapshot for UI rendering.
func (s *Service) CurrentStatus(ctx context.Context) (Status, error) {
	region, err := s.cfg.Repo.Region(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("read region: %w", err)
	}
	inside, err := s.cfg.Repo.IsInside(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("read inside flag: %w", err)
	}

	radius, err := s.cfg.Prefs.RadiusMeters(ctx)
	if err != nil {
		radius = geofence.DefaultRadiusMeters
	}
	if region != nil {
		radius = region.RadiusMeters
	}

	s.mu.Lock()
	active := s.active
	distance := s.lastDistance
	s.mu.Unlock()

	return Status{
		HasRegion:      region != nil,
		Region:         region,
		RadiusMeters:   radius,
		IsActive:       active,
		IsInside:       inside,
		DistanceMeters: distance,
		RegistrarState: s.cfg.Registrar.State().String(),
	}, nil
}

// HandleTransition is the entry point for platform geofence broadcasts.
// Duplicates and late deliveries for retired regions are absorbed here;
// enter/dwell reports are re-verified against the accuracy-buffered radius
// before dispatch.
func (s *Service) HandleTransition(ctx context.Context, t geofence.Transition) error {
	region, err := s.cfg.Repo.Region(ctx)
	if err != nil {
		return fmt.Errorf("read region: %w", err)
	}
	if region == nil {
		s.cfg.Logger.Debug().Str("transition", t.Type.String()).Msg("transition for no active region discarded")
		return nil
	}
	if len(t.RegionIDs) > 0 && !containsID(t.RegionIDs, region.ID) {
		s.cfg.Logger.Debug().
			Str("transition", t.Type.String()).
			Strs("region_ids", t.RegionIDs).
			Msg("transition for retired region discarded")
		return nil
	}

	// Without a triggering fix the boundary is the best distance estimate.
	distance := region.RadiusMeters

	switch t.Type {
	case geofence.TransitionEnter, geofence.TransitionDwell:
		if t.TriggeringFix != nil {
			v := s.cfg.Evaluator.EvaluateConfirmed(*t.TriggeringFix, *region)
			distance = v.DistanceMeters
			if !v.Inside {
				s.cfg.Logger.Warn().
					Float64("distance_m", v.DistanceMeters).
					Float64("effective_radius_m", v.EffectiveRadius).
					Msg("platform enter report contradicts fix, ignoring")
				return nil
			}
		}
		return s.cfg.Dispatcher.VerifiedInside(ctx, *region, distance)
	case geofence.TransitionExit:
		if t.TriggeringFix != nil {
			v := s.cfg.Evaluator.EvaluateConfirmed(*t.TriggeringFix, *region)
			distance = v.DistanceMeters
		}
		return s.cfg.Dispatcher.VerifiedOutside(ctx, *region, distance)
	default:
		s.cfg.Logger.Warn().Str("transition", t.Type.String()).Msg("unknown transition type")
		return nil
	}
}

// handleFix is the continuous evaluation path, invoked for every fix the
// source delivers.
func (s *Service) handleFix(fix location.Fix) {
	s.mu.Lock()
	ctx := s.runCtx
	active := s.active
	s.mu.Unlock()
	if !active || ctx == nil {
		return
	}

	if !s.cfg.Filter.Accept(fix) {
		s.cfg.Metrics.FixRejected(ctx)
		return
	}
	s.cfg.Metrics.FixAccepted(ctx)

	region, err := s.cfg.Repo.Region(ctx)
	if err != nil {
		s.cfg.Logger.Error().Err(err).Msg("failed to read region for evaluation")
		return
	}
	if region == nil {
		return
	}

	wasInside, err := s.cfg.Repo.IsInside(ctx)
	if err != nil {
		s.cfg.Logger.Error().Err(err).Msg("failed to read inside flag for evaluation")
		return
	}

	v := s.cfg.Evaluator.Evaluate(fix, *region, wasInside)

	s.mu.Lock()
	d := v.DistanceMeters
	s.lastDistance = &d
	s.mu.Unlock()

	s.publishStatus(ctx, region, v.Inside, &d)

	if v.Inside {
		err = s.cfg.Dispatcher.VerifiedInside(ctx, *region, v.DistanceMeters)
	} else {
		err = s.cfg.Dispatcher.VerifiedOutside(ctx, *region, v.DistanceMeters)
	}
	if err != nil {
		s.cfg.Logger.Error().Err(err).Msg("transition dispatch failed")
	}
}

func (s *Service) publishStatus(ctx context.Context, region *geofence.Region, inside bool, distance *float64) {
	event := events.Event{
		Type:       events.TypeStatusUpdated,
		IsInside:   inside,
		OccurredAt: time.Now(),
	}
	if region != nil {
		event.RegionID = region.ID
		event.Mode = region.Mode
		event.RadiusMeters = region.RadiusMeters
	}
	if distance != nil {
		event.DistanceMeters = *distance
	}
	if err := s.cfg.Publisher.Publish(ctx, event); err != nil {
		s.cfg.Logger.Warn().Err(err).Msg("failed to publish status event")
	}
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
