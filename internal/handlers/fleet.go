package handlers

import (
	"net/http"

	"github.com/schooltrack/fleet-tracking/internal/middleware"
	"github.com/schooltrack/fleet-tracking/internal/stream"
	"github.com/schooltrack/fleet-tracking/internal/tracking"
)

// FleetHandler serves the one-shot fleet snapshot and the live SSE stream.
type FleetHandler struct {
	service   *tracking.Service
	publisher *stream.Publisher
}

// NewFleetHandler creates a new fleet handler.
func NewFleetHandler(service *tracking.Service, publisher *stream.Publisher) *FleetHandler {
	return &FleetHandler{service: service, publisher: publisher}
}

// schoolSlug resolves the requested slug and enforces tenant scoping.
// Returns "" after writing the error response when the request is rejected.
func schoolSlug(w http.ResponseWriter, r *http.Request) string {
	slug := r.URL.Query().Get("schoolSlug")
	if slug == "" {
		http.Error(w, "schoolSlug query parameter is required", http.StatusBadRequest)
		return ""
	}
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return ""
	}
	if !claims.CanAccessSchool(slug) {
		http.Error(w, "Access to this school is not permitted", http.StatusForbidden)
		return ""
	}
	return slug
}

// Snapshot handles GET /api/fleet?schoolSlug=<slug>: the current fleet
// status of one school.
func (h *FleetHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	slug := schoolSlug(w, r)
	if slug == "" {
		return
	}
	snapshot, err := h.service.FleetStatus(r.Context(), slug)
	if err != nil {
		writeTrackingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// Stream handles GET /api/tracking/stream?schoolSlug=<slug>: a server-sent
// events feed pushing one snapshot immediately and then one per tick until
// the client disconnects.
func (h *FleetHandler) Stream(w http.ResponseWriter, r *http.Request) {
	slug := schoolSlug(w, r)
	if slug == "" {
		return
	}
	if err := h.publisher.Stream(r.Context(), w, slug); err != nil {
		writeTrackingError(w, err)
	}
}
