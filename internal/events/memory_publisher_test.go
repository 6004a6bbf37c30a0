package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proxwake/proxwake/internal/events"
)

func TestMemoryPublisher_FanOut(t *testing.T) {
	pub := events.NewMemoryPublisher()

	ch1, cancel1 := pub.Subscribe()
	defer cancel1()
	ch2, cancel2 := pub.Subscribe()
	defer cancel2()

	event := events.Event{
		Type:           events.TypeRegionEntered,
		RegionID:       "gfr_abc",
		IsInside:       true,
		DistanceMeters: 40,
		RadiusMeters:   100,
		OccurredAt:     time.Now(),
	}
	require.NoError(t, pub.Publish(context.Background(), event))

	for _, ch := range []<-chan events.Event{ch1, ch2} {
		select {
		case got := <-ch:
			assert.Equal(t, events.TypeRegionEntered, got.Type)
			assert.Equal(t, "gfr_abc", got.RegionID)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestMemoryPublisher_CancelledSubscriberIgnored(t *testing.T) {
	pub := events.NewMemoryPublisher()

	ch, cancel := pub.Subscribe()
	cancel()

	require.NoError(t, pub.Publish(context.Background(), events.Event{Type: events.TypeStatusUpdated}))

	// Channel is closed after cancel; no event should be readable.
	if got, ok := <-ch; ok {
		t.Errorf("expected closed channel, got event %v", got)
	}
}

func TestMemoryPublisher_SlowSubscriberDoesNotBlock(t *testing.T) {
	pub := events.NewMemoryPublisher()

	_, cancel := pub.Subscribe() // never drained
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			_ = pub.Publish(context.Background(), events.Event{Type: events.TypeStatusUpdated})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}
}
