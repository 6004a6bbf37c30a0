package proximity

import (
	"context"
	"sync"

	"github.com/proxwake/proxwake/internal/geofence"
)

// MemoryRepository is an in-memory implementation of Repository, used in
// tests and in standalone deployments without a database.
type MemoryRepository struct {
	mu    sync.RWMutex
	state State
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// IsInside implements Repository.
func (r *MemoryRepository) IsInside(_ context.Context) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.IsInside, nil
}

// SetInside implements Repository.
func (r *MemoryRepository) SetInside(_ context.Context, inside bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.IsInside = inside
	return nil
}

// AlarmFired implements Repository.
func (r *MemoryRepository) AlarmFired(_ context.Context) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.AlarmFired, nil
}

// SetAlarmFired implements Repository.
func (r *MemoryRepository) SetAlarmFired(_ context.Context, fired bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.AlarmFired = fired
	return nil
}

// Region implements Repository.
func (r *MemoryRepository) Region(_ context.Context) (*geofence.Region, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.state.Region == nil {
		return nil, nil
	}
	// Return a copy to prevent mutation.
	region := *r.state.Region
	return &region, nil
}

// SetRegion implements Repository.
func (r *MemoryRepository) SetRegion(_ context.Context, region *geofence.Region) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if region == nil {
		r.state.Region = nil
		return nil
	}
	cp := *region
	r.state.Region = &cp
	return nil
}

// Reset implements Repository.
func (r *MemoryRepository) Reset(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.IsInside = false
	r.state.AlarmFired = false
	return nil
}
