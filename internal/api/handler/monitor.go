package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/proxwake/proxwake/internal/api/models"
	"github.com/proxwake/proxwake/internal/api/response"
	"github.com/proxwake/proxwake/internal/geofence"
	"github.com/proxwake/proxwake/internal/monitor"
	"github.com/proxwake/proxwake/pkg/geo"
)

// MonitorHandler handles the monitoring lifecycle endpoints.
type MonitorHandler struct {
	service *monitor.Service
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(service *monitor.Service) *MonitorHandler {
	return &MonitorHandler{service: service}
}

// GetStatus handles GET /v1/status - the engine snapshot for UI rendering.
func (h *MonitorHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.CurrentStatus(r.Context())
	if err != nil {
		response.InternalError(w, r, "failed to read monitoring status")
		return
	}
	response.JSON(w, r, http.StatusOK, status)
}

// StartMonitoring handles POST /v1/monitor - pin a region and start monitoring.
func (h *MonitorHandler) StartMonitoring(w http.ResponseWriter, r *http.Request) {
	var req models.StartMonitoringRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}

	if fieldErrors := validateCenter(req.Center); len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid region center", fieldErrors)
		return
	}

	mode := geofence.Mode(req.Mode)
	if req.Mode != "" && mode != geofence.ModePassive && mode != geofence.ModeActiveNavigation {
		response.BadRequest(w, r, "invalid mode", []models.FieldError{
			{Field: "mode", Message: "must be PASSIVE or ACTIVE_NAVIGATION", Code: "INVALID_ENUM"},
		})
		return
	}

	region, err := h.service.StartMonitoring(r.Context(), geo.Point{Lat: req.Center.Lat, Lon: req.Center.Lon}, mode)
	if err != nil {
		if errors.Is(err, monitor.ErrInvalidCenter) {
			response.BadRequest(w, r, "region center out of coordinate bounds", nil)
			return
		}
		response.InternalError(w, r, "failed to start monitoring")
		return
	}

	response.Created(w, r, "/v1/monitor", region)
}

// StopMonitoring handles DELETE /v1/monitor - retire the active region.
func (h *MonitorHandler) StopMonitoring(w http.ResponseWriter, r *http.Request) {
	if err := h.service.StopMonitoring(r.Context()); err != nil {
		if errors.Is(err, monitor.ErrNotMonitoring) {
			response.NotFound(w, r, "no active monitoring session")
			return
		}
		response.InternalError(w, r, "failed to stop monitoring")
		return
	}
	response.NoContent(w, r)
}

// UpdateRadius handles PATCH /v1/monitor/radius - resize the alarm radius.
func (h *MonitorHandler) UpdateRadius(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateRadiusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}

	if err := h.service.UpdateRadius(r.Context(), req.RadiusMeters); err != nil {
		if errors.Is(err, monitor.ErrInvalidRadius) {
			response.BadRequest(w, r, "radius must be positive", []models.FieldError{
				{Field: "radiusMeters", Message: "must be greater than zero", Code: "OUT_OF_RANGE"},
			})
			return
		}
		response.InternalError(w, r, "failed to update radius")
		return
	}

	status, err := h.service.CurrentStatus(r.Context())
	if err != nil {
		response.InternalError(w, r, "failed to read monitoring status")
		return
	}
	response.JSON(w, r, http.StatusOK, status)
}

func validateCenter(p models.Point) []models.FieldError {
	var fieldErrors []models.FieldError
	if p.Lat < -90 || p.Lat > 90 {
		fieldErrors = append(fieldErrors, models.FieldError{
			Field: "center.lat", Message: "must be between -90 and 90", Code: "OUT_OF_RANGE",
		})
	}
	if p.Lon < -180 || p.Lon > 180 {
		fieldErrors = append(fieldErrors, models.FieldError{
			Field: "center.lon", Message: "must be between -180 and 180", Code: "OUT_OF_RANGE",
		})
	}
	return fieldErrors
}
