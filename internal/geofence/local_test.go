package geofence_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proxwake/proxwake/internal/geofence"
	"github.com/proxwake/proxwake/internal/location"
	"github.com/proxwake/proxwake/pkg/geo"
)

func localFix(northMeters float64, at time.Time) location.Fix {
	return location.Fix{
		Lat:            14.5995 + northMeters/111194.9,
		Lon:            121.1817,
		AccuracyMeters: 5,
		Timestamp:      at,
	}
}

func TestLocalFacility_EnterExitDwell(t *testing.T) {
	facility := geofence.NewLocalFacility(zerolog.Nop())

	var got []geofence.Transition
	facility.SetTransitionHandler(func(tr geofence.Transition) {
		got = append(got, tr)
	})

	region := geofence.NewRegion(geo.Point{Lat: 14.5995, Lon: 121.1817}, 100, geofence.ModeActiveNavigation)
	region.DwellTime = 10 * time.Second
	require.NoError(t, facility.AddRegion(context.Background(), region))

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	facility.Observe(localFix(500, base))                     // outside, no transition
	facility.Observe(localFix(50, base.Add(5*time.Second)))   // enter
	facility.Observe(localFix(40, base.Add(10*time.Second)))  // still inside, dwell not yet
	facility.Observe(localFix(30, base.Add(20*time.Second)))  // dwell
	facility.Observe(localFix(25, base.Add(25*time.Second)))  // dwell already emitted
	facility.Observe(localFix(500, base.Add(30*time.Second))) // exit

	require.Len(t, got, 3)
	assert.Equal(t, geofence.TransitionEnter, got[0].Type)
	assert.Equal(t, geofence.TransitionDwell, got[1].Type)
	assert.Equal(t, geofence.TransitionExit, got[2].Type)

	for _, tr := range got {
		require.Len(t, tr.RegionIDs, 1)
		assert.Equal(t, region.ID, tr.RegionIDs[0])
		assert.NotNil(t, tr.TriggeringFix)
	}
}

func TestLocalFacility_NoRegionNoTransitions(t *testing.T) {
	facility := geofence.NewLocalFacility(zerolog.Nop())

	var count int
	facility.SetTransitionHandler(func(geofence.Transition) { count++ })

	facility.Observe(localFix(10, time.Now()))
	assert.Zero(t, count)
}

func TestLocalFacility_RemoveRegionStopsTransitions(t *testing.T) {
	facility := geofence.NewLocalFacility(zerolog.Nop())

	var count int
	facility.SetTransitionHandler(func(geofence.Transition) { count++ })

	region := geofence.NewRegion(geo.Point{Lat: 14.5995, Lon: 121.1817}, 100, geofence.ModePassive)
	require.NoError(t, facility.AddRegion(context.Background(), region))
	require.NoError(t, facility.RemoveRegion(context.Background()))

	facility.Observe(localFix(10, time.Now()))
	assert.Zero(t, count)
}
