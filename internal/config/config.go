package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the full server configuration. Values come from an optional
// YAML file, overridden by environment variables.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Stream    StreamConfig    `yaml:"stream"`
	Tracking  TrackingConfig  `yaml:"tracking"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	JWT       JWTConfig       `yaml:"jwt"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port" validate:"required"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database" validate:"required"`
}

type StreamConfig struct {
	// Seconds between snapshot pushes on an open stream.
	IntervalSeconds int `yaml:"interval_seconds" validate:"gte=1"`
}

type TrackingConfig struct {
	// Vehicles silent for longer than this are surfaced as OFFLINE.
	// Zero disables the derivation.
	StaleAfterSeconds int `yaml:"stale_after_seconds" validate:"gte=0"`
}

type RateLimitConfig struct {
	Enabled       bool   `yaml:"enabled"`
	MaxRequests   int    `yaml:"max_requests" validate:"gte=1"`
	WindowSeconds int    `yaml:"window_seconds" validate:"gte=1"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos" validate:"lte=2"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
	Expiry string `yaml:"expiry"`
}

type LogConfig struct {
	Level      string `yaml:"level" validate:"oneof=debug info warn error"`
	Format     string `yaml:"format" validate:"oneof=text json"`
	FilePath   string `yaml:"file_path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// ListenAddress returns host:port for the HTTP server.
func (c ServerConfig) ListenAddress() string {
	return c.Host + ":" + c.Port
}

// Interval returns the stream tick interval.
func (c StreamConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// StaleAfter returns the staleness threshold; zero disables it.
func (c TrackingConfig) StaleAfter() time.Duration {
	return time.Duration(c.StaleAfterSeconds) * time.Second
}

// Window returns the rate limit window.
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// TokenExpiry parses the JWT expiry, defaulting to 24h.
func (c JWTConfig) TokenExpiry() time.Duration {
	if c.Expiry == "" {
		return 24 * time.Hour
	}
	if d, err := time.ParseDuration(c.Expiry); err == nil {
		return d
	}
	return 24 * time.Hour
}

// Load reads the config file at path (optional), applies environment
// overrides and defaults, and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		c.Mongo.URI = v
	}
	if v := os.Getenv("MONGO_DB"); v != "" {
		c.Mongo.Database = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWT.Secret = v
	}
	if v := os.Getenv("JWT_EXPIRY"); v != "" {
		c.JWT.Expiry = v
	}
	if v := os.Getenv("STREAM_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Stream.IntervalSeconds = n
		}
	}
	if v := os.Getenv("STALE_AFTER_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Tracking.StaleAfterSeconds = n
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.RateLimit.RedisAddr = v
	}
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		c.MQTT.Broker = v
		c.MQTT.Enabled = true
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "schoolfleet"
	}
	if c.Stream.IntervalSeconds == 0 {
		c.Stream.IntervalSeconds = 5
	}
	if c.RateLimit.MaxRequests == 0 {
		c.RateLimit.MaxRequests = 120
	}
	if c.RateLimit.WindowSeconds == 0 {
		c.RateLimit.WindowSeconds = 60
	}
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = "fleet/+/telemetry"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "fleet-tracking-server"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 100
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 30
	}
}
