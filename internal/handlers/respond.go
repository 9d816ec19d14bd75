package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/schooltrack/fleet-tracking/internal/tracking"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

// writeTrackingError maps the tracking error taxonomy onto HTTP statuses:
// invalid reports are 400, unknown vehicles/schools/telemetry are 404,
// everything else is a logged 500.
func writeTrackingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tracking.ErrInvalidReport):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, tracking.ErrVehicleNotFound),
		errors.Is(err, tracking.ErrNoTelemetry),
		errors.Is(err, tracking.ErrSchoolNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		log.WithError(err).Error("Tracking request failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
