package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/proxwake/proxwake/internal/api/models"
	"github.com/proxwake/proxwake/internal/api/response"
	"github.com/proxwake/proxwake/internal/location"
)

// FixesHandler handles the location fix ingest endpoint. Fixes feed both the
// continuous evaluation pipeline (through the push provider) and the
// in-process geofence facility.
type FixesHandler struct {
	provider *location.PushProvider
	observe  func(location.Fix)
}

// NewFixesHandler creates a new FixesHandler. observe may be nil when no
// in-process geofence facility is wired.
func NewFixesHandler(provider *location.PushProvider, observe func(location.Fix)) *FixesHandler {
	return &FixesHandler{provider: provider, observe: observe}
}

// SubmitFix handles POST /v1/fixes - ingest one reported location fix.
func (h *FixesHandler) SubmitFix(w http.ResponseWriter, r *http.Request) {
	var req models.FixSubmission
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}

	if fieldErrors := validateFix(req); len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid fix", fieldErrors)
		return
	}

	fix := location.Fix{
		Lat:            req.Lat,
		Lon:            req.Lon,
		AccuracyMeters: req.AccuracyMeters,
		Timestamp:      time.Now(),
		SpeedMPS:       req.SpeedMps,
		BearingDegrees: req.BearingDegrees,
		Provider:       req.Provider,
	}
	if req.Time != nil {
		fix.Timestamp = req.Time.Time()
	}

	forwarded := h.provider.Push(fix)
	if h.observe != nil {
		h.observe(fix)
	}

	response.JSON(w, r, http.StatusAccepted, models.FixResult{Forwarded: forwarded})
}

func validateFix(req models.FixSubmission) []models.FieldError {
	var fieldErrors []models.FieldError
	if req.Lat < -90 || req.Lat > 90 {
		fieldErrors = append(fieldErrors, models.FieldError{
			Field: "lat", Message: "must be between -90 and 90", Code: "OUT_OF_RANGE",
		})
	}
	if req.Lon < -180 || req.Lon > 180 {
		fieldErrors = append(fieldErrors, models.FieldError{
			Field: "lon", Message: "must be between -180 and 180", Code: "OUT_OF_RANGE",
		})
	}
	if req.AccuracyMeters <= 0 {
		fieldErrors = append(fieldErrors, models.FieldError{
			Field: "accuracyMeters", Message: "must be greater than zero", Code: "OUT_OF_RANGE",
		})
	}
	return fieldErrors
}
