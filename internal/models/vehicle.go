package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VehicleStatus is the administrative status of a vehicle. Vehicles are never
// hard-deleted; retiring one is a status change to INACTIVE.
type VehicleStatus string

const (
	VehicleActive      VehicleStatus = "ACTIVE"
	VehicleMaintenance VehicleStatus = "MAINTENANCE"
	VehicleInactive    VehicleStatus = "INACTIVE"
)

// IsValidVehicleStatus checks if a vehicle status is valid.
func IsValidVehicleStatus(s VehicleStatus) bool {
	switch s {
	case VehicleActive, VehicleMaintenance, VehicleInactive:
		return true
	default:
		return false
	}
}

// Vehicle represents a school transport vehicle.
type Vehicle struct {
	ID                 primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	SchoolID           primitive.ObjectID  `bson:"school_id" json:"school_id"`
	RegistrationNumber string              `bson:"registration_number" json:"registration_number"`
	Capacity           int                 `bson:"capacity" json:"capacity"`
	Status             VehicleStatus       `bson:"status" json:"status"`
	RouteID            *primitive.ObjectID `bson:"route_id,omitempty" json:"route_id,omitempty"`
	InsuranceExpiry    *time.Time          `bson:"insurance_expiry,omitempty" json:"insurance_expiry,omitempty"`
	FitnessExpiry      *time.Time          `bson:"fitness_expiry,omitempty" json:"fitness_expiry,omitempty"`
	PollutionExpiry    *time.Time          `bson:"pollution_expiry,omitempty" json:"pollution_expiry,omitempty"`
	CreatedAt          time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time           `bson:"updated_at" json:"updated_at"`
}
