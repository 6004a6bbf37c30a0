package models

// StartMonitoringRequest is the payload for pinning a region.
type StartMonitoringRequest struct {
	Center Point `json:"center" validate:"required"`

	// Mode selects the alarm framing; empty means derive it from the
	// navigation preference.
	Mode string `json:"mode,omitempty" validate:"omitempty,oneof=PASSIVE ACTIVE_NAVIGATION"`
}

// UpdateRadiusRequest is the payload for resizing the alarm radius.
type UpdateRadiusRequest struct {
	RadiusMeters float64 `json:"radiusMeters" validate:"required,gt=0"`
}

// FixSubmission is one reported location fix on the ingest endpoint.
type FixSubmission struct {
	Lat            float64    `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon            float64    `json:"lon" validate:"required,gte=-180,lte=180"`
	AccuracyMeters float64    `json:"accuracyMeters" validate:"required,gt=0"`
	Time           *Timestamp `json:"time,omitempty"`
	SpeedMps       *float64   `json:"speedMps,omitempty"`
	BearingDegrees *float64   `json:"bearingDegrees,omitempty"`
	Provider       string     `json:"provider,omitempty"`
}

// FixResult reports what the engine did with a submitted fix.
type FixResult struct {
	// Forwarded is false when the fix was dropped by the granted update
	// tier's interval or displacement constraints.
	Forwarded bool `json:"forwarded"`
}
