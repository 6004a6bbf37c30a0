package models

// Health represents the health status of the service.
type Health struct {
	Status  HealthStatus           `json:"status"`
	Time    Timestamp              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SystemStatus represents the overall system status.
type SystemStatus struct {
	Status     HealthStatus      `json:"status"`
	Time       Timestamp         `json:"time"`
	Subsystems []SubsystemStatus `json:"subsystems"`
	Engine     EngineStatus      `json:"engine"`
}

// SubsystemStatus represents the status of a subsystem.
type SubsystemStatus struct {
	Name   string       `json:"name"`
	Status HealthStatus `json:"status"`
	Detail *string      `json:"detail,omitempty"`
}

// EngineStatus summarizes the monitoring engine internals for operators.
type EngineStatus struct {
	// SourceTier is the index of the location update tier currently
	// granted, counted from the most aggressive.
	SourceTier int `json:"sourceTier"`

	// SourceRestarts counts stream restarts forced by the liveness
	// watchdog since startup.
	SourceRestarts int64 `json:"sourceRestarts"`

	// RegistrarState is the platform registration state machine position.
	RegistrarState string `json:"registrarState"`
}
