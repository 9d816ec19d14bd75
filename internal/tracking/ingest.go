package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"github.com/schooltrack/fleet-tracking/internal/db"
	"github.com/schooltrack/fleet-tracking/internal/models"
)

// Report is one inbound position report for a vehicle. Latitude and
// longitude are required; everything else is optional and retains the prior
// value when absent.
type Report struct {
	Latitude     *float64               `json:"latitude" validate:"required,latitude"`
	Longitude    *float64               `json:"longitude" validate:"required,longitude"`
	Speed        *float64               `json:"speed,omitempty"`
	Heading      *float64               `json:"heading,omitempty"`
	Status       *models.MovementStatus `json:"status,omitempty"`
	DelayMinutes *int                   `json:"delay_minutes,omitempty"`
}

// Service implements telemetry ingest and fleet status aggregation.
type Service struct {
	schools   db.SchoolStore
	vehicles  db.VehicleStore
	telemetry db.TelemetryStore
	routes    db.RouteStore

	// staleAfter > 0 turns on OFFLINE derivation in fleet snapshots.
	staleAfter time.Duration

	validate *validator.Validate
	now      func() time.Time
}

// NewService creates the tracking service.
func NewService(schools db.SchoolStore, vehicles db.VehicleStore, telemetry db.TelemetryStore, routes db.RouteStore, staleAfter time.Duration) *Service {
	return &Service{
		schools:    schools,
		vehicles:   vehicles,
		telemetry:  telemetry,
		routes:     routes,
		staleAfter: staleAfter,
		validate:   validator.New(),
		now:        time.Now,
	}
}

// Record validates a report and overwrites the vehicle's last known state.
// The stored record is untouched on any validation failure. Returns the
// updated record on success.
func (s *Service) Record(ctx context.Context, vehicleID string, report Report) (*models.Telemetry, error) {
	if err := s.validate.Struct(report); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}
	if report.Status != nil && !models.IsValidMovementStatus(*report.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidReport, *report.Status)
	}

	vehicle, err := s.vehicles.FindVehicleByID(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrVehicleNotFound
		}
		return nil, fmt.Errorf("looking up vehicle %s: %w", vehicleID, err)
	}

	record := models.Telemetry{VehicleID: vehicle.ID}
	prior, err := s.telemetry.FindTelemetryByVehicle(ctx, vehicle.ID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("loading prior telemetry for %s: %w", vehicleID, err)
	}
	if prior != nil {
		record = *prior
	}

	record.Location = models.Location{Lat: *report.Latitude, Lon: *report.Longitude}
	if report.Speed != nil {
		record.Speed = *report.Speed
	}
	if report.Heading != nil {
		record.Heading = *report.Heading
	}
	if report.DelayMinutes != nil {
		record.DelayMinutes = *report.DelayMinutes
	}
	switch {
	case report.Status != nil:
		record.Status = *report.Status
	case prior != nil:
		// keep prior status
	case record.Speed > 0:
		record.Status = models.MovementMoving
	default:
		record.Status = models.MovementStopped
	}
	record.UpdatedAt = s.now()

	if err := s.telemetry.UpsertTelemetry(ctx, record); err != nil {
		return nil, fmt.Errorf("storing telemetry for %s: %w", vehicleID, err)
	}

	log.WithFields(log.Fields{
		"vehicle_id": vehicleID,
		"lat":        record.Location.Lat,
		"lon":        record.Location.Lon,
		"status":     record.Status,
	}).Debug("Telemetry recorded")

	return &record, nil
}

// Latest returns the vehicle's last known state. ErrVehicleNotFound for an
// unknown vehicle, ErrNoTelemetry when it exists but never reported.
func (s *Service) Latest(ctx context.Context, vehicleID string) (*models.Telemetry, error) {
	vehicle, err := s.vehicles.FindVehicleByID(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrVehicleNotFound
		}
		return nil, fmt.Errorf("looking up vehicle %s: %w", vehicleID, err)
	}

	record, err := s.telemetry.FindTelemetryByVehicle(ctx, vehicle.ID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrNoTelemetry
		}
		return nil, fmt.Errorf("loading telemetry for %s: %w", vehicleID, err)
	}
	return record, nil
}
