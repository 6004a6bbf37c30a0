package prefs

import (
	"context"
	"sync"
)

// MemoryRepository is an in-memory implementation of Repository.
type MemoryRepository struct {
	mu           sync.RWMutex
	radiusMeters float64
	voiceEnabled bool
	navActive    bool
	radiusSet    bool
}

// NewMemoryRepository creates an in-memory preference store with defaults.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// RadiusMeters implements Repository.
func (r *MemoryRepository) RadiusMeters(_ context.Context) (float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.radiusSet {
		return defaultRadius, nil
	}
	return r.radiusMeters, nil
}

// SetRadiusMeters implements Repository.
func (r *MemoryRepository) SetRadiusMeters(_ context.Context, radius float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.radiusMeters = radius
	r.radiusSet = true
	return nil
}

// VoiceEnabled implements Repository.
func (r *MemoryRepository) VoiceEnabled(_ context.Context) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.voiceEnabled, nil
}

// SetVoiceEnabled implements Repository.
func (r *MemoryRepository) SetVoiceEnabled(_ context.Context, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.voiceEnabled = enabled
	return nil
}

// NavigationActive implements Repository.
func (r *MemoryRepository) NavigationActive(_ context.Context) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.navActive, nil
}

// SetNavigationActive implements Repository.
func (r *MemoryRepository) SetNavigationActive(_ context.Context, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.navActive = active
	return nil
}
