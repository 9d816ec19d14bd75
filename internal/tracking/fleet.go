package tracking

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/schooltrack/fleet-tracking/internal/db"
	"github.com/schooltrack/fleet-tracking/internal/models"
)

// FleetStatus builds the snapshot of one school's fleet: every vehicle of
// that school with its last known telemetry and assigned route summary. The
// snapshot never contains another school's vehicles.
func (s *Service) FleetStatus(ctx context.Context, schoolSlug string) (*models.FleetSnapshot, error) {
	school, err := s.schools.FindSchoolBySlug(ctx, schoolSlug)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrSchoolNotFound
		}
		return nil, fmt.Errorf("looking up school %s: %w", schoolSlug, err)
	}

	vehicles, err := s.vehicles.FindVehiclesBySchool(ctx, school.ID)
	if err != nil {
		return nil, fmt.Errorf("loading vehicles for %s: %w", schoolSlug, err)
	}

	ids := make([]primitive.ObjectID, len(vehicles))
	for i, v := range vehicles {
		ids[i] = v.ID
	}
	telemetry, err := s.telemetry.FindTelemetryByVehicles(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading telemetry for %s: %w", schoolSlug, err)
	}

	routes, err := s.routes.FindRoutesBySchool(ctx, school.ID)
	if err != nil {
		return nil, fmt.Errorf("loading routes for %s: %w", schoolSlug, err)
	}
	routesByID := make(map[primitive.ObjectID]models.Route, len(routes))
	for _, r := range routes {
		routesByID[r.ID] = r
	}

	now := s.now()
	snapshot := &models.FleetSnapshot{
		SchoolSlug:  schoolSlug,
		GeneratedAt: now,
		Vehicles:    make([]models.VehicleStatusEntry, 0, len(vehicles)),
	}
	for _, vehicle := range vehicles {
		entry := models.VehicleStatusEntry{Vehicle: vehicle, State: models.TrackingNoData}
		if record, ok := telemetry[vehicle.ID]; ok {
			rec := record
			entry.Telemetry = &rec
			entry.State = models.TrackingState(rec.Status)
			if s.staleAfter > 0 && now.Sub(rec.UpdatedAt) > s.staleAfter {
				entry.State = models.TrackingOffline
			}
		}
		if vehicle.RouteID != nil {
			if route, ok := routesByID[*vehicle.RouteID]; ok {
				summary := route.Summary()
				entry.Route = &summary
			}
		}
		snapshot.Vehicles = append(snapshot.Vehicles, entry)
	}
	sort.Slice(snapshot.Vehicles, func(i, j int) bool {
		return snapshot.Vehicles[i].Vehicle.RegistrationNumber < snapshot.Vehicles[j].Vehicle.RegistrationNumber
	})

	return snapshot, nil
}
