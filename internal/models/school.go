package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// School is a tenant. Every vehicle and route belongs to exactly one school,
// and all fleet queries are scoped by the school's slug.
type School struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Slug      string             `bson:"slug" json:"slug"`
	IsActive  bool               `bson:"is_active" json:"is_active"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
