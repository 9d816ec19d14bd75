package db

import (
	"context"
	"fmt"
	"time"

	"github.com/schooltrack/fleet-tracking/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// SchoolStore defines the interface for school (tenant) lookups.
type SchoolStore interface {
	InsertSchool(ctx context.Context, school models.School) error
	FindSchoolBySlug(ctx context.Context, slug string) (*models.School, error)
}

// MongoSchoolStore implements SchoolStore for MongoDB.
type MongoSchoolStore struct {
	Collection *mongo.Collection
}

// InsertSchool inserts a school record into the collection.
func (s *MongoSchoolStore) InsertSchool(ctx context.Context, school models.School) error {
	if s.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	school.CreatedAt = time.Now()
	school.IsActive = true
	_, err := s.Collection.InsertOne(ctx, school)
	return err
}

// FindSchoolBySlug finds a school by its unique slug.
func (s *MongoSchoolStore) FindSchoolBySlug(ctx context.Context, slug string) (*models.School, error) {
	if s.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	var school models.School
	err := s.Collection.FindOne(ctx, bson.M{"slug": slug}).Decode(&school)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &school, nil
}
