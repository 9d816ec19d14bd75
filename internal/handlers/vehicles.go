package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/schooltrack/fleet-tracking/internal/db"
	"github.com/schooltrack/fleet-tracking/internal/middleware"
	"github.com/schooltrack/fleet-tracking/internal/models"
)

// VehicleHandler serves fleet-admin vehicle operations.
type VehicleHandler struct {
	schools  db.SchoolStore
	vehicles db.VehicleStore
	routes   db.RouteStore
	validate *validator.Validate
}

// NewVehicleHandler creates a new vehicle handler.
func NewVehicleHandler(schools db.SchoolStore, vehicles db.VehicleStore, routes db.RouteStore) *VehicleHandler {
	return &VehicleHandler{
		schools:  schools,
		vehicles: vehicles,
		routes:   routes,
		validate: validator.New(),
	}
}

type createVehicleRequest struct {
	RegistrationNumber string     `json:"registration_number" validate:"required"`
	Capacity           int        `json:"capacity" validate:"gte=1"`
	SchoolSlug         string     `json:"school_slug"`
	InsuranceExpiry    *time.Time `json:"insurance_expiry,omitempty"`
	FitnessExpiry      *time.Time `json:"fitness_expiry,omitempty"`
	PollutionExpiry    *time.Time `json:"pollution_expiry,omitempty"`
}

// resolveSchool picks the tenant for a write: admins may name any school,
// everyone else is pinned to their own.
func (h *VehicleHandler) resolveSchool(w http.ResponseWriter, r *http.Request, requested string) *models.School {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return nil
	}
	slug := requested
	if claims.Role != models.RoleAdmin || slug == "" {
		slug = claims.SchoolSlug
	}
	if slug == "" {
		http.Error(w, "school_slug is required", http.StatusBadRequest)
		return nil
	}
	if !claims.CanAccessSchool(slug) {
		http.Error(w, "Access to this school is not permitted", http.StatusForbidden)
		return nil
	}
	school, err := h.schools.FindSchoolBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			http.Error(w, "School not found", http.StatusNotFound)
		} else {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return nil
	}
	return school
}

// Create handles POST /api/vehicles: register a new vehicle for a school.
func (h *VehicleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createVehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	school := h.resolveSchool(w, r, req.SchoolSlug)
	if school == nil {
		return
	}

	vehicle, err := h.vehicles.InsertVehicle(r.Context(), models.Vehicle{
		SchoolID:           school.ID,
		RegistrationNumber: req.RegistrationNumber,
		Capacity:           req.Capacity,
		Status:             models.VehicleActive,
		InsuranceExpiry:    req.InsuranceExpiry,
		FitnessExpiry:      req.FitnessExpiry,
		PollutionExpiry:    req.PollutionExpiry,
	})
	if err != nil {
		http.Error(w, "Failed to create vehicle", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, vehicle)
}

// List handles GET /api/vehicles?schoolSlug=<slug>.
func (h *VehicleHandler) List(w http.ResponseWriter, r *http.Request) {
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
	vehicles, err := h.vehicles.FindVehiclesBySchool(r.Context(), school.ID)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, vehicles)
}

// authorizeVehicle loads the vehicle and enforces tenant scoping on writes:
// admins may touch any vehicle, everyone else only their own school's. Vehicle
// IDs are enumerable, so an existence check alone is not enough.
// Returns nil after writing the error response when the request is rejected.
func (h *VehicleHandler) authorizeVehicle(w http.ResponseWriter, r *http.Request, vehicleID string) *models.Vehicle {
	vehicle, err := h.vehicles.FindVehicleByID(r.Context(), vehicleID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			http.Error(w, "Vehicle not found", http.StatusNotFound)
		} else {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return nil
	}

	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return nil
	}
	if claims.Role == models.RoleAdmin {
		return vehicle
	}
	if claims.SchoolSlug == "" {
		http.Error(w, "Access to this vehicle is not permitted", http.StatusForbidden)
		return nil
	}
	school, err := h.schools.FindSchoolBySlug(r.Context(), claims.SchoolSlug)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			http.Error(w, "Access to this vehicle is not permitted", http.StatusForbidden)
		} else {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return nil
	}
	if school.ID != vehicle.SchoolID {
		http.Error(w, "Access to this vehicle is not permitted", http.StatusForbidden)
		return nil
	}
	return vehicle
}

type updateStatusRequest struct {
	Status models.VehicleStatus `json:"status" validate:"required"`
}

// UpdateStatus handles POST /api/vehicles/{vehicleId}/status. Vehicles are
// retired with a status change, never deleted.
func (h *VehicleHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	vehicleID := r.PathValue("vehicleId")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if !models.IsValidVehicleStatus(req.Status) {
		http.Error(w, "Invalid vehicle status", http.StatusBadRequest)
		return
	}

	if h.authorizeVehicle(w, r, vehicleID) == nil {
		return
	}

	if err := h.vehicles.UpdateVehicleStatus(r.Context(), vehicleID, req.Status); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			http.Error(w, "Vehicle not found", http.StatusNotFound)
		} else {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Vehicle status updated"})
}

type assignRouteRequest struct {
	RouteID *string `json:"route_id"`
}

// AssignRoute handles POST /api/vehicles/{vehicleId}/route: assign the
// vehicle to one of its school's routes, or clear the assignment with a
// null route_id. Cross-school assignments are rejected.
func (h *VehicleHandler) AssignRoute(w http.ResponseWriter, r *http.Request) {
	vehicleID := r.PathValue("vehicleId")

	var req assignRouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	vehicle := h.authorizeVehicle(w, r, vehicleID)
	if vehicle == nil {
		return
	}

	var routeID *primitive.ObjectID
	if req.RouteID != nil {
		route, err := h.routes.FindRouteByID(r.Context(), *req.RouteID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				http.Error(w, "Route not found", http.StatusNotFound)
			} else {
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}
		if route.SchoolID != vehicle.SchoolID {
			http.Error(w, "Route belongs to another school", http.StatusBadRequest)
			return
		}
		routeID = &route.ID
	}

	if err := h.vehicles.AssignRoute(r.Context(), vehicleID, routeID); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Route assignment updated"})
}
