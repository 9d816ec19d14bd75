package models

import "time"

// TrackingState is the derived per-vehicle state surfaced in fleet snapshots.
// It echoes the device-reported movement status unless the vehicle never
// reported (NO_DATA) or stopped reporting past the staleness threshold
// (OFFLINE).
type TrackingState string

const (
	TrackingMoving  TrackingState = "MOVING"
	TrackingStopped TrackingState = "STOPPED"
	TrackingIdle    TrackingState = "IDLE"
	TrackingNoData  TrackingState = "NO_DATA"
	TrackingOffline TrackingState = "OFFLINE"
)

// VehicleStatusEntry is one vehicle's row in a fleet snapshot.
type VehicleStatusEntry struct {
	Vehicle   Vehicle       `json:"vehicle"`
	Telemetry *Telemetry    `json:"telemetry,omitempty"`
	Route     *RouteSummary `json:"route,omitempty"`
	State     TrackingState `json:"state"`
}

// FleetSnapshot is the aggregated view of one school's fleet at a point in
// time. It is recomputed on every request or stream tick and never persisted.
type FleetSnapshot struct {
	SchoolSlug  string               `json:"school_slug"`
	GeneratedAt time.Time            `json:"generated_at"`
	Vehicles    []VehicleStatusEntry `json:"vehicles"`
}
