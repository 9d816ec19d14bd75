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

// RouteStore defines the interface for route data operations.
type RouteStore interface {
	InsertRoute(ctx context.Context, route models.Route) (*models.Route, error)
	FindRouteByID(ctx context.Context, id string) (*models.Route, error)
	FindRoutesBySchool(ctx context.Context, schoolID primitive.ObjectID) ([]models.Route, error)
	UpdateRoute(ctx context.Context, id string, route models.Route) error
}

// MongoRouteStore implements RouteStore for MongoDB.
type MongoRouteStore struct {
	Collection *mongo.Collection
}

// InsertRoute inserts a route and returns it with its new ID.
func (s *MongoRouteStore) InsertRoute(ctx context.Context, route models.Route) (*models.Route, error) {
	if s.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	route.ID = primitive.NewObjectID()
	route.CreatedAt = time.Now()
	route.UpdatedAt = route.CreatedAt
	if _, err := s.Collection.InsertOne(ctx, route); err != nil {
		return nil, err
	}
	return &route, nil
}

// FindRouteByID finds a route by its ID.
func (s *MongoRouteStore) FindRouteByID(ctx context.Context, id string) (*models.Route, error) {
	if s.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var route models.Route
	err = s.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&route)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &route, nil
}

// FindRoutesBySchool returns every route belonging to one school.
func (s *MongoRouteStore) FindRoutesBySchool(ctx context.Context, schoolID primitive.ObjectID) ([]models.Route, error) {
	if s.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	cursor, err := s.Collection.Find(ctx, bson.M{"school_id": schoolID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var routes []models.Route
	if err := cursor.All(ctx, &routes); err != nil {
		return nil, err
	}
	return routes, nil
}

// UpdateRoute replaces a route document by its ID.
func (s *MongoRouteStore) UpdateRoute(ctx context.Context, id string, route models.Route) error {
	if s.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	route.ID = objectID
	route.UpdatedAt = time.Now()
	result, err := s.Collection.ReplaceOne(ctx, bson.M{"_id": objectID}, route)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
