package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	assert.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "schoolfleet", cfg.Mongo.Database)
	assert.Equal(t, 5, cfg.Stream.IntervalSeconds)
	assert.Equal(t, 0, cfg.Tracking.StaleAfterSeconds)
	assert.Equal(t, 120, cfg.RateLimit.MaxRequests)
	assert.Equal(t, 60, cfg.RateLimit.WindowSeconds)
	assert.Equal(t, "fleet/+/telemetry", cfg.MQTT.Topic)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  host: 0.0.0.0
  port: "9090"
mongo:
  uri: mongodb://db:27017
  database: fleet_test
stream:
  interval_seconds: 2
tracking:
  stale_after_seconds: 120
rate_limit:
  enabled: true
  max_requests: 50
  window_seconds: 30
log:
  level: debug
  format: json
`
	assert.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.ListenAddress())
	assert.Equal(t, "fleet_test", cfg.Mongo.Database)
	assert.Equal(t, 2*time.Second, cfg.Stream.Interval())
	assert.Equal(t, 2*time.Minute, cfg.Tracking.StaleAfter())
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window())
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	assert.NoError(t, os.WriteFile(path, []byte("server:\n  port: \"9090\"\n"), 0o644))

	t.Setenv("PORT", "7070")
	t.Setenv("STALE_AFTER_SECONDS", "45")

	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, 45*time.Second, cfg.Tracking.StaleAfter())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	assert.NoError(t, os.WriteFile(path, []byte("log:\n  level: loud\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MQTTBrokerEnvEnablesBridge(t *testing.T) {
	t.Setenv("MQTT_BROKER", "tcp://broker:1883")

	cfg, err := Load("")
	assert.NoError(t, err)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
}

func TestTokenExpiry(t *testing.T) {
	assert.Equal(t, 24*time.Hour, JWTConfig{}.TokenExpiry())
	assert.Equal(t, 2*time.Hour, JWTConfig{Expiry: "2h"}.TokenExpiry())
	assert.Equal(t, 24*time.Hour, JWTConfig{Expiry: "soon"}.TokenExpiry())
}
