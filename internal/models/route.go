package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Stop is one pickup/dropoff point along a route. Sequence determines the
// expected arrival order and is unique within a route.
type Stop struct {
	Name     string   `bson:"name" json:"name"`
	Sequence int      `bson:"sequence" json:"sequence"`
	Location Location `bson:"location" json:"location"`
}

// Route is an ordered sequence of stops operated for one school.
type Route struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SchoolID  primitive.ObjectID `bson:"school_id" json:"school_id"`
	Name      string             `bson:"name" json:"name"`
	Stops     []Stop             `bson:"stops" json:"stops"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// RouteSummary is the route view embedded in fleet snapshots.
type RouteSummary struct {
	ID        primitive.ObjectID `bson:"id" json:"id"`
	Name      string             `bson:"name" json:"name"`
	StopCount int                `bson:"stop_count" json:"stop_count"`
	FirstStop string             `bson:"first_stop,omitempty" json:"first_stop,omitempty"`
	LastStop  string             `bson:"last_stop,omitempty" json:"last_stop,omitempty"`
}

// Summary builds the snapshot view of the route.
func (r *Route) Summary() RouteSummary {
	s := RouteSummary{ID: r.ID, Name: r.Name, StopCount: len(r.Stops)}
	if len(r.Stops) > 0 {
		s.FirstStop = r.Stops[0].Name
		s.LastStop = r.Stops[len(r.Stops)-1].Name
	}
	return s
}
