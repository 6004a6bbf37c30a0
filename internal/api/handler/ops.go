// Package handler provides HTTP handlers for the ProxWake API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/proxwake/proxwake/internal/api/models"
	"github.com/proxwake/proxwake/internal/api/response"
)

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version    string
	buildTime  string
	readyCheck func(ctx context.Context) error
	engine     func() models.EngineStatus
}

// NewOpsHandler creates a new OpsHandler. readyCheck and engine may be nil
// when the corresponding backends are not wired.
func NewOpsHandler(version, buildTime string, readyCheck func(ctx context.Context) error, engine func() models.EngineStatus) *OpsHandler {
	return &OpsHandler{
		version:    version,
		buildTime:  buildTime,
		readyCheck: readyCheck,
		engine:     engine,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}
	if h.readyCheck != nil {
		if err := h.readyCheck(r.Context()); err != nil {
			health.Status = models.HealthStatusFail
			health.Details = map[string]interface{}{"error": err.Error()}
			response.JSON(w, r, http.StatusServiceUnavailable, health)
			return
		}
	}
	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - subsystem and engine status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	now := models.Timestamp(time.Now())
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       now,
		Subsystems: []models.SubsystemStatus{},
	}

	if h.readyCheck != nil {
		store := models.SubsystemStatus{Name: "state-store", Status: models.HealthStatusOK}
		if err := h.readyCheck(r.Context()); err != nil {
			detail := err.Error()
			store.Status = models.HealthStatusFail
			store.Detail = &detail
			status.Status = models.HealthStatusDegraded
		}
		status.Subsystems = append(status.Subsystems, store)
	}

	if h.engine != nil {
		status.Engine = h.engine()
	}

	response.JSON(w, r, http.StatusOK, status)
}
