package db

import (
	"context"
	"fmt"
	"time"

	"github.com/schooltrack/fleet-tracking/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// VehicleStore defines the interface for vehicle data operations.
type VehicleStore interface {
	InsertVehicle(ctx context.Context, vehicle models.Vehicle) (*models.Vehicle, error)
	FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error)
	FindVehiclesBySchool(ctx context.Context, schoolID primitive.ObjectID) ([]models.Vehicle, error)
	UpdateVehicle(ctx context.Context, id string, vehicle models.Vehicle) error
	UpdateVehicleStatus(ctx context.Context, id string, status models.VehicleStatus) error
	AssignRoute(ctx context.Context, id string, routeID *primitive.ObjectID) error
}

// MongoVehicleStore implements VehicleStore for MongoDB.
type MongoVehicleStore struct {
	Collection *mongo.Collection
}

// InsertVehicle inserts a vehicle record and returns it with its new ID.
func (s *MongoVehicleStore) InsertVehicle(ctx context.Context, vehicle models.Vehicle) (*models.Vehicle, error) {
	if s.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	vehicle.ID = primitive.NewObjectID()
	vehicle.CreatedAt = time.Now()
	vehicle.UpdatedAt = vehicle.CreatedAt
	if _, err := s.Collection.InsertOne(ctx, vehicle); err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// FindVehicleByID finds a vehicle by its ID.
func (s *MongoVehicleStore) FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error) {
	if s.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var vehicle models.Vehicle
	err = s.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&vehicle)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &vehicle, nil
}

// FindVehiclesBySchool returns every vehicle belonging to one school.
func (s *MongoVehicleStore) FindVehiclesBySchool(ctx context.Context, schoolID primitive.ObjectID) ([]models.Vehicle, error) {
	if s.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	cursor, err := s.Collection.Find(ctx, bson.M{"school_id": schoolID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var vehicles []models.Vehicle
	if err := cursor.All(ctx, &vehicles); err != nil {
		return nil, err
	}
	return vehicles, nil
}

// UpdateVehicle replaces a vehicle document by its ID.
func (s *MongoVehicleStore) UpdateVehicle(ctx context.Context, id string, vehicle models.Vehicle) error {
	if s.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	vehicle.ID = objectID
	vehicle.UpdatedAt = time.Now()
	result, err := s.Collection.ReplaceOne(ctx, bson.M{"_id": objectID}, vehicle)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateVehicleStatus updates only the administrative status of a vehicle.
func (s *MongoVehicleStore) UpdateVehicleStatus(ctx context.Context, id string, status models.VehicleStatus) error {
	if s.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	result, err := s.Collection.UpdateOne(ctx, bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now()}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AssignRoute sets or clears the route assignment of a vehicle.
func (s *MongoVehicleStore) AssignRoute(ctx context.Context, id string, routeID *primitive.ObjectID) error {
	if s.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	update := bson.M{"$set": bson.M{"route_id": routeID, "updated_at": time.Now()}}
	if routeID == nil {
		update = bson.M{
			"$unset": bson.M{"route_id": ""},
			"$set":   bson.M{"updated_at": time.Now()},
		}
	}
	result, err := s.Collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
