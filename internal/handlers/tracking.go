package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/schooltrack/fleet-tracking/internal/tracking"
)

// TrackingHandler serves telemetry ingest and read endpoints.
type TrackingHandler struct {
	service *tracking.Service
}

// NewTrackingHandler creates a new tracking handler.
func NewTrackingHandler(service *tracking.Service) *TrackingHandler {
	return &TrackingHandler{service: service}
}

// Report handles POST /api/tracking/{vehicleId}: one position report from a
// device or driver app. Responds with the updated record.
func (h *TrackingHandler) Report(w http.ResponseWriter, r *http.Request) {
	vehicleID := r.PathValue("vehicleId")

	var report tracking.Report
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	record, err := h.service.Record(r.Context(), vehicleID, report)
	if err != nil {
		writeTrackingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// Latest handles GET /api/tracking/{vehicleId}: the vehicle's last known
// state, or 404 if it never reported.
func (h *TrackingHandler) Latest(w http.ResponseWriter, r *http.Request) {
	vehicleID := r.PathValue("vehicleId")

	record, err := h.service.Latest(r.Context(), vehicleID)
	if err != nil {
		writeTrackingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}
