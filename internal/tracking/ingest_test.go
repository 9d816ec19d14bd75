package tracking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/schooltrack/fleet-tracking/internal/models"
)

func TestRecord_FirstReport(t *testing.T) {
	env := newTestEnv(0)
	school := env.addSchool("greenwood")
	vehicle := env.addVehicle(school.ID, "KA-01-F-1001")

	record, err := env.service.Record(context.Background(), vehicle.ID.Hex(), Report{
		Latitude:     f64(12.9716),
		Longitude:    f64(77.5946),
		Speed:        f64(32.5),
		Heading:      f64(180),
		Status:       movement(models.MovementMoving),
		DelayMinutes: intPtr(3),
	})

	assert.NoError(t, err)
	assert.Equal(t, vehicle.ID, record.VehicleID)
	assert.Equal(t, 12.9716, record.Location.Lat)
	assert.Equal(t, 77.5946, record.Location.Lon)
	assert.Equal(t, 32.5, record.Speed)
	assert.Equal(t, models.MovementMoving, record.Status)
	assert.Equal(t, 3, record.DelayMinutes)
	assert.Equal(t, env.now, record.UpdatedAt)

	stored, ok := env.telemetry.records[vehicle.ID]
	assert.True(t, ok)
	assert.Equal(t, *record, stored)
}

func TestRecord_LatestWins(t *testing.T) {
	env := newTestEnv(0)
	school := env.addSchool("greenwood")
	vehicle := env.addVehicle(school.ID, "KA-01-F-1001")

	_, err := env.service.Record(context.Background(), vehicle.ID.Hex(), Report{
		Latitude: f64(12.90), Longitude: f64(77.50), Speed: f64(20),
	})
	assert.NoError(t, err)
	_, err = env.service.Record(context.Background(), vehicle.ID.Hex(), Report{
		Latitude: f64(12.95), Longitude: f64(77.55), Speed: f64(25),
	})
	assert.NoError(t, err)

	// A single record per vehicle, holding the latest report.
	assert.Len(t, env.telemetry.records, 1)
	stored := env.telemetry.records[vehicle.ID]
	assert.Equal(t, 12.95, stored.Location.Lat)
	assert.Equal(t, 25.0, stored.Speed)
}

func TestRecord_PartialReportRetainsPriorFields(t *testing.T) {
	env := newTestEnv(0)
	school := env.addSchool("greenwood")
	vehicle := env.addVehicle(school.ID, "KA-01-F-1001")

	_, err := env.service.Record(context.Background(), vehicle.ID.Hex(), Report{
		Latitude:     f64(12.90),
		Longitude:    f64(77.50),
		Speed:        f64(30),
		Heading:      f64(90),
		Status:       movement(models.MovementMoving),
		DelayMinutes: intPtr(5),
	})
	assert.NoError(t, err)

	// Position-only update.
	record, err := env.service.Record(context.Background(), vehicle.ID.Hex(), Report{
		Latitude:  f64(12.91),
		Longitude: f64(77.51),
	})
	assert.NoError(t, err)

	assert.Equal(t, 12.91, record.Location.Lat)
	assert.Equal(t, 30.0, record.Speed)
	assert.Equal(t, 90.0, record.Heading)
	assert.Equal(t, models.MovementMoving, record.Status)
	assert.Equal(t, 5, record.DelayMinutes)
}

func TestRecord_InvalidReportLeavesStoreUntouched(t *testing.T) {
	env := newTestEnv(0)
	school := env.addSchool("greenwood")
	vehicle := env.addVehicle(school.ID, "KA-01-F-1001")

	_, err := env.service.Record(context.Background(), vehicle.ID.Hex(), Report{
		Latitude: f64(12.90), Longitude: f64(77.50), Speed: f64(20),
	})
	assert.NoError(t, err)

	cases := []struct {
		name   string
		report Report
	}{
		{"missing latitude", Report{Longitude: f64(77.50)}},
		{"missing longitude", Report{Latitude: f64(12.90)}},
		{"latitude out of range", Report{Latitude: f64(91), Longitude: f64(77.50)}},
		{"longitude out of range", Report{Latitude: f64(12.90), Longitude: f64(181)}},
		{"unknown status", Report{Latitude: f64(12.90), Longitude: f64(77.50), Status: movement("FLYING")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.service.Record(context.Background(), vehicle.ID.Hex(), tc.report)
			assert.ErrorIs(t, err, ErrInvalidReport)
		})
	}

	stored := env.telemetry.records[vehicle.ID]
	assert.Equal(t, 12.90, stored.Location.Lat)
	assert.Equal(t, 20.0, stored.Speed)
}

func TestRecord_UnknownVehicle(t *testing.T) {
	env := newTestEnv(0)

	_, err := env.service.Record(context.Background(), "64f000000000000000000000", Report{
		Latitude: f64(12.90), Longitude: f64(77.50),
	})
	assert.ErrorIs(t, err, ErrVehicleNotFound)
	assert.Empty(t, env.telemetry.records)
}

func TestRecord_DefaultStatusFromSpeed(t *testing.T) {
	env := newTestEnv(0)
	school := env.addSchool("greenwood")
	moving := env.addVehicle(school.ID, "KA-01-F-1001")
	stopped := env.addVehicle(school.ID, "KA-01-F-1002")

	record, err := env.service.Record(context.Background(), moving.ID.Hex(), Report{
		Latitude: f64(12.90), Longitude: f64(77.50), Speed: f64(18),
	})
	assert.NoError(t, err)
	assert.Equal(t, models.MovementMoving, record.Status)

	record, err = env.service.Record(context.Background(), stopped.ID.Hex(), Report{
		Latitude: f64(12.90), Longitude: f64(77.50),
	})
	assert.NoError(t, err)
	assert.Equal(t, models.MovementStopped, record.Status)
}

func TestRecord_UpsertFailure(t *testing.T) {
	env := newTestEnv(0)
	school := env.addSchool("greenwood")
	vehicle := env.addVehicle(school.ID, "KA-01-F-1001")
	env.telemetry.upsertErr = errStoreDown

	_, err := env.service.Record(context.Background(), vehicle.ID.Hex(), Report{
		Latitude: f64(12.90), Longitude: f64(77.50),
	})
	assert.ErrorIs(t, err, errStoreDown)
}

func TestLatest(t *testing.T) {
	env := newTestEnv(0)
	school := env.addSchool("greenwood")
	reported := env.addVehicle(school.ID, "KA-01-F-1001")
	silent := env.addVehicle(school.ID, "KA-01-F-1002")

	_, err := env.service.Record(context.Background(), reported.ID.Hex(), Report{
		Latitude: f64(12.90), Longitude: f64(77.50), Speed: f64(22),
	})
	assert.NoError(t, err)

	record, err := env.service.Latest(context.Background(), reported.ID.Hex())
	assert.NoError(t, err)
	assert.Equal(t, 12.90, record.Location.Lat)

	_, err = env.service.Latest(context.Background(), silent.ID.Hex())
	assert.ErrorIs(t, err, ErrNoTelemetry)

	_, err = env.service.Latest(context.Background(), "64f000000000000000000000")
	assert.ErrorIs(t, err, ErrVehicleNotFound)
}

func intPtr(v int) *int { return &v }
