package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MovementStatus is the device-reported movement state of a vehicle.
type MovementStatus string

const (
	MovementMoving  MovementStatus = "MOVING"
	MovementStopped MovementStatus = "STOPPED"
	MovementIdle    MovementStatus = "IDLE"
)

// IsValidMovementStatus checks if a movement status is valid.
func IsValidMovementStatus(s MovementStatus) bool {
	switch s {
	case MovementMoving, MovementStopped, MovementIdle:
		return true
	default:
		return false
	}
}

// Telemetry is the last known state of one vehicle. There is exactly one
// record per vehicle; every report overwrites it (latest wins, no history).
type Telemetry struct {
	VehicleID    primitive.ObjectID `bson:"vehicle_id" json:"vehicle_id"`
	Location     Location           `bson:"location" json:"location"`
	Speed        float64            `bson:"speed" json:"speed"`
	Heading      float64            `bson:"heading" json:"heading"`
	Status       MovementStatus     `bson:"status" json:"status"`
	DelayMinutes int                `bson:"delay_minutes" json:"delay_minutes"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}
