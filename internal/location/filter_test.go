package location_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/proxwake/proxwake/internal/location"
)

var filterBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// fixAt builds a fix offset north from a reference point by meters.
// One degree of latitude is ~111195m on the 6371km sphere.
func fixAt(northMeters, accuracy float64, at time.Time) location.Fix {
	return location.Fix{
		Lat:            14.5995 + northMeters/111195.0,
		Lon:            121.1817,
		AccuracyMeters: accuracy,
		Timestamp:      at,
	}
}

func TestFilter_FirstFixAlwaysAccepted(t *testing.T) {
	f := location.NewFilter(zerolog.Nop())

	if !f.Accept(fixAt(0, 150.0, filterBase)) {
		t.Fatal("first fix must be accepted regardless of accuracy")
	}
	if f.Previous() == nil {
		t.Fatal("accepted fix should become the new reference")
	}
}

func TestFilter_Rules(t *testing.T) {
	tests := []struct {
		name      string
		previous  location.Fix
		candidate location.Fix
		want      bool
	}{
		{
			name:      "accuracy improvement",
			previous:  fixAt(0, 30, filterBase),
			candidate: fixAt(0, 27.5, filterBase.Add(2*time.Second)),
			want:      true,
		},
		{
			name:      "accuracy improvement below threshold",
			previous:  fixAt(0, 30, filterBase),
			candidate: fixAt(0, 28.5, filterBase.Add(2*time.Second)),
			want:      false,
		},
		{
			name:      "periodic refresh despite no movement",
			previous:  fixAt(0, 30, filterBase),
			candidate: fixAt(0, 30, filterBase.Add(11*time.Second)),
			want:      true,
		},
		{
			name:      "material movement",
			previous:  fixAt(0, 40, filterBase),
			candidate: fixAt(3.5, 40, filterBase.Add(2*time.Second)),
			want:      true,
		},
		{
			name:      "good accuracy with modest movement",
			previous:  fixAt(0, 24, filterBase),
			candidate: fixAt(1.5, 24, filterBase.Add(2*time.Second)),
			want:      true,
		},
		{
			name:      "excellent accuracy no movement",
			previous:  fixAt(0, 9, filterBase),
			candidate: fixAt(0, 9, filterBase.Add(2*time.Second)),
			want:      true,
		},
		{
			name:      "fallback minimum movement",
			previous:  fixAt(0, 40, filterBase),
			candidate: fixAt(0.7, 40, filterBase.Add(2*time.Second)),
			want:      true,
		},
		{
			name:      "jitter rejected",
			previous:  fixAt(0, 20, filterBase),
			candidate: fixAt(0.3, 22, filterBase.Add(2*time.Second)),
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := location.NewFilter(zerolog.Nop())
			if !f.Accept(tt.previous) {
				t.Fatal("seeding fix must be accepted")
			}
			if got := f.Accept(tt.candidate); got != tt.want {
				t.Errorf("Accept() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilter_AcceptedFixBecomesReference(t *testing.T) {
	f := location.NewFilter(zerolog.Nop())

	first := fixAt(0, 20, filterBase)
	second := fixAt(5, 20, filterBase.Add(2*time.Second))

	f.Accept(first)
	f.Accept(second)

	prev := f.Previous()
	if prev == nil || prev.Lat != second.Lat {
		t.Error("second accepted fix should replace the reference")
	}

	// A rejected fix must not advance the reference.
	rejected := fixAt(5.1, 40, filterBase.Add(3*time.Second))
	if f.Accept(rejected) {
		t.Fatal("expected jitter fix to be rejected")
	}
	if prev := f.Previous(); prev.Lat != second.Lat {
		t.Error("rejected fix must not replace the reference")
	}
}

func TestFilter_Reset(t *testing.T) {
	f := location.NewFilter(zerolog.Nop())
	f.Accept(fixAt(0, 20, filterBase))
	f.Reset()

	if f.Previous() != nil {
		t.Error("Reset should clear the reference fix")
	}
	if !f.Accept(fixAt(0.1, 90, filterBase.Add(time.Second))) {
		t.Error("fix after Reset should be treated as the first fix")
	}
}
