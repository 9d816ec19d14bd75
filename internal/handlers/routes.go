package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/schooltrack/fleet-tracking/internal/db"
	"github.com/schooltrack/fleet-tracking/internal/models"
)

// RouteHandler serves transport route operations.
type RouteHandler struct {
	schools  db.SchoolStore
	routes   db.RouteStore
	vehicles *VehicleHandler // reuses tenant resolution
	validate *validator.Validate
}

// NewRouteHandler creates a new route handler.
func NewRouteHandler(schools db.SchoolStore, routes db.RouteStore, vehicles *VehicleHandler) *RouteHandler {
	return &RouteHandler{
		schools:  schools,
		routes:   routes,
		vehicles: vehicles,
		validate: validator.New(),
	}
}

type stopRequest struct {
	Name      string  `json:"name" validate:"required"`
	Sequence  int     `json:"sequence" validate:"gte=1"`
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

type createRouteRequest struct {
	Name       string        `json:"name" validate:"required"`
	SchoolSlug string        `json:"school_slug"`
	Stops      []stopRequest `json:"stops" validate:"required,min=1,dive"`
}

// Create handles POST /api/routes: define a route as an ordered stop
// sequence. Stop sequence numbers must be unique within the route; stops
// are stored sorted by sequence.
func (h *RouteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	seen := make(map[int]bool, len(req.Stops))
	for _, s := range req.Stops {
		if seen[s.Sequence] {
			http.Error(w, "Duplicate stop sequence", http.StatusBadRequest)
			return
		}
		seen[s.Sequence] = true
	}

	school := h.vehicles.resolveSchool(w, r, req.SchoolSlug)
	if school == nil {
		return
	}

	stops := make([]models.Stop, len(req.Stops))
	for i, s := range req.Stops {
		stops[i] = models.Stop{
			Name:     s.Name,
			Sequence: s.Sequence,
			Location: models.Location{Lat: s.Latitude, Lon: s.Longitude},
		}
	}
	sort.Slice(stops, func(i, j int) bool { return stops[i].Sequence < stops[j].Sequence })

	route, err := h.routes.InsertRoute(r.Context(), models.Route{
		SchoolID: school.ID,
		Name:     req.Name,
		Stops:    stops,
	})
	if err != nil {
		http.Error(w, "Failed to create route", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, route)
}

// List handles GET /api/routes?schoolSlug=<slug>.
func (h *RouteHandler) List(w http.ResponseWriter, r *http.Request) {
	slug := schoolSlug(w, r)
	if slug == "" {
		return
	}
	school, err := h.schools.FindSchoolBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			http.Error(w, "School not found", http.StatusNotFound)
		} else {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}
	routes, err := h.routes.FindRoutesBySchool(r.Context(), school.ID)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, routes)
}
