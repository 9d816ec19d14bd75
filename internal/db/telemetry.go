package db

import (
	"context"
	"fmt"

	"github.com/schooltrack/fleet-tracking/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TelemetryStore defines the interface for last-known-position operations.
// One document per vehicle; writes are upserts keyed by vehicle ID.
type TelemetryStore interface {
	UpsertTelemetry(ctx context.Context, telemetry models.Telemetry) error
	FindTelemetryByVehicle(ctx context.Context, vehicleID primitive.ObjectID) (*models.Telemetry, error)
	FindTelemetryByVehicles(ctx context.Context, vehicleIDs []primitive.ObjectID) (map[primitive.ObjectID]models.Telemetry, error)
}

// MongoTelemetryStore implements TelemetryStore for MongoDB.
type MongoTelemetryStore struct {
	Collection *mongo.Collection
}

// UpsertTelemetry overwrites the vehicle's last known state. Concurrent
// writers for the same vehicle race; the last single-document write wins.
func (s *MongoTelemetryStore) UpsertTelemetry(ctx context.Context, telemetry models.Telemetry) error {
	if s.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	_, err := s.Collection.ReplaceOne(ctx,
		bson.M{"vehicle_id": telemetry.VehicleID},
		telemetry,
		options.Replace().SetUpsert(true))
	return err
}

// FindTelemetryByVehicle returns the vehicle's last known state, or
// ErrNotFound if the vehicle has never reported.
func (s *MongoTelemetryStore) FindTelemetryByVehicle(ctx context.Context, vehicleID primitive.ObjectID) (*models.Telemetry, error) {
	if s.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	var telemetry models.Telemetry
	err := s.Collection.FindOne(ctx, bson.M{"vehicle_id": vehicleID}).Decode(&telemetry)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &telemetry, nil
}

// FindTelemetryByVehicles bulk-loads the last known state for a set of
// vehicles. Vehicles that never reported are simply absent from the map.
func (s *MongoTelemetryStore) FindTelemetryByVehicles(ctx context.Context, vehicleIDs []primitive.ObjectID) (map[primitive.ObjectID]models.Telemetry, error) {
	if s.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	out := make(map[primitive.ObjectID]models.Telemetry, len(vehicleIDs))
	if len(vehicleIDs) == 0 {
		return out, nil
	}
	cursor, err := s.Collection.Find(ctx, bson.M{"vehicle_id": bson.M{"$in": vehicleIDs}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var records []models.Telemetry
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	for _, r := range records {
		out[r.VehicleID] = r
	}
	return out, nil
}
