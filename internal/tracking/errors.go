package tracking

import "errors"

var (
	// ErrInvalidReport marks a report the device can correct: missing or
	// out-of-range coordinates, or an unknown movement status.
	ErrInvalidReport = errors.New("invalid telemetry report")

	// ErrVehicleNotFound is returned when a vehicle ID does not resolve.
	ErrVehicleNotFound = errors.New("vehicle not found")

	// ErrNoTelemetry is returned when a vehicle exists but has never reported.
	ErrNoTelemetry = errors.New("vehicle has no telemetry")

	// ErrSchoolNotFound is returned when a school slug does not resolve.
	ErrSchoolNotFound = errors.New("school not found")
)
