package tracking

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/schooltrack/fleet-tracking/internal/db"
	"github.com/schooltrack/fleet-tracking/internal/models"
)

// In-memory stores backing the service tests.

type fakeSchoolStore struct {
	schools map[string]models.School
}

func (f *fakeSchoolStore) InsertSchool(_ context.Context, school models.School) error {
	f.schools[school.Slug] = school
	return nil
}

func (f *fakeSchoolStore) FindSchoolBySlug(_ context.Context, slug string) (*models.School, error) {
	school, ok := f.schools[slug]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &school, nil
}

type fakeVehicleStore struct {
	vehicles map[string]models.Vehicle
}

func (f *fakeVehicleStore) InsertVehicle(_ context.Context, vehicle models.Vehicle) (*models.Vehicle, error) {
	vehicle.ID = primitive.NewObjectID()
	f.vehicles[vehicle.ID.Hex()] = vehicle
	return &vehicle, nil
}

func (f *fakeVehicleStore) FindVehicleByID(_ context.Context, id string) (*models.Vehicle, error) {
	vehicle, ok := f.vehicles[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &vehicle, nil
}

func (f *fakeVehicleStore) FindVehiclesBySchool(_ context.Context, schoolID primitive.ObjectID) ([]models.Vehicle, error) {
	var out []models.Vehicle
	for _, v := range f.vehicles {
		if v.SchoolID == schoolID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeVehicleStore) UpdateVehicle(_ context.Context, id string, vehicle models.Vehicle) error {
	if _, ok := f.vehicles[id]; !ok {
		return db.ErrNotFound
	}
	f.vehicles[id] = vehicle
	return nil
}

func (f *fakeVehicleStore) UpdateVehicleStatus(_ context.Context, id string, status models.VehicleStatus) error {
	vehicle, ok := f.vehicles[id]
	if !ok {
		return db.ErrNotFound
	}
	vehicle.Status = status
	f.vehicles[id] = vehicle
	return nil
}

func (f *fakeVehicleStore) AssignRoute(_ context.Context, id string, routeID *primitive.ObjectID) error {
	vehicle, ok := f.vehicles[id]
	if !ok {
		return db.ErrNotFound
	}
	vehicle.RouteID = routeID
	f.vehicles[id] = vehicle
	return nil
}

type fakeTelemetryStore struct {
	records   map[primitive.ObjectID]models.Telemetry
	upsertErr error
}

func (f *fakeTelemetryStore) UpsertTelemetry(_ context.Context, telemetry models.Telemetry) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.records[telemetry.VehicleID] = telemetry
	return nil
}

func (f *fakeTelemetryStore) FindTelemetryByVehicle(_ context.Context, vehicleID primitive.ObjectID) (*models.Telemetry, error) {
	record, ok := f.records[vehicleID]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &record, nil
}

func (f *fakeTelemetryStore) FindTelemetryByVehicles(_ context.Context, vehicleIDs []primitive.ObjectID) (map[primitive.ObjectID]models.Telemetry, error) {
	out := make(map[primitive.ObjectID]models.Telemetry)
	for _, id := range vehicleIDs {
		if record, ok := f.records[id]; ok {
			out[id] = record
		}
	}
	return out, nil
}

type fakeRouteStore struct {
	routes map[string]models.Route
}

func (f *fakeRouteStore) InsertRoute(_ context.Context, route models.Route) (*models.Route, error) {
	route.ID = primitive.NewObjectID()
	f.routes[route.ID.Hex()] = route
	return &route, nil
}

func (f *fakeRouteStore) FindRouteByID(_ context.Context, id string) (*models.Route, error) {
	route, ok := f.routes[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &route, nil
}

func (f *fakeRouteStore) FindRoutesBySchool(_ context.Context, schoolID primitive.ObjectID) ([]models.Route, error) {
	var out []models.Route
	for _, r := range f.routes {
		if r.SchoolID == schoolID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRouteStore) UpdateRoute(_ context.Context, id string, route models.Route) error {
	if _, ok := f.routes[id]; !ok {
		return db.ErrNotFound
	}
	f.routes[id] = route
	return nil
}

var errStoreDown = errors.New("store down")

type testEnv struct {
	schools   *fakeSchoolStore
	vehicles  *fakeVehicleStore
	telemetry *fakeTelemetryStore
	routes    *fakeRouteStore
	service   *Service
	now       time.Time
}

func newTestEnv(staleAfter time.Duration) *testEnv {
	env := &testEnv{
		schools:   &fakeSchoolStore{schools: map[string]models.School{}},
		vehicles:  &fakeVehicleStore{vehicles: map[string]models.Vehicle{}},
		telemetry: &fakeTelemetryStore{records: map[primitive.ObjectID]models.Telemetry{}},
		routes:    &fakeRouteStore{routes: map[string]models.Route{}},
		now:       time.Date(2025, 3, 10, 8, 30, 0, 0, time.UTC),
	}
	env.service = NewService(env.schools, env.vehicles, env.telemetry, env.routes, staleAfter)
	env.service.now = func() time.Time { return env.now }
	return env
}

func (e *testEnv) addSchool(slug string) models.School {
	school := models.School{ID: primitive.NewObjectID(), Name: slug, Slug: slug, IsActive: true}
	e.schools.schools[slug] = school
	return school
}

func (e *testEnv) addVehicle(schoolID primitive.ObjectID, reg string) models.Vehicle {
	vehicle := models.Vehicle{
		ID:                 primitive.NewObjectID(),
		SchoolID:           schoolID,
		RegistrationNumber: reg,
		Capacity:           40,
		Status:             models.VehicleActive,
	}
	e.vehicles.vehicles[vehicle.ID.Hex()] = vehicle
	return vehicle
}

func f64(v float64) *float64 { return &v }

func movement(s models.MovementStatus) *models.MovementStatus { return &s }
