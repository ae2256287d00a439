// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and EATERY_* environment variables on top.
// - Validation failures unwrap to ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"time"
)

// Store drivers.
const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// Reference policies.
const (
	PolicyCascade = "cascade"
	PolicyReject  = "reject"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the backing store: mongo or memory.
	StoreDriver string `koanf:"store_driver"`

	MongoURI              string `koanf:"mongo_uri"`
	MongoDatabase         string `koanf:"mongo_database"`
	RestaurantsCollection string `koanf:"restaurants_collection"`
	UsersCollection       string `koanf:"users_collection"`

	// ConnectTimeoutMS bounds the initial connection and ping.
	ConnectTimeoutMS int `koanf:"connect_timeout_ms"`
	// QueryTimeoutMS bounds every store call.
	QueryTimeoutMS int `koanf:"query_timeout_ms"`

	// NearbyRadiusMeters is the radius of the nearby restaurants query.
	NearbyRadiusMeters float64 `koanf:"nearby_radius_meters"`

	// ReferencePolicy is cascade or reject.
	ReferencePolicy string `koanf:"reference_policy"`

	// DocsScriptURL overrides where /api-docs loads ReDoc from.
	DocsScriptURL string `koanf:"docs_script_url"`
	// DocsScriptFile is a local ReDoc bundle served with the docs; it
	// wins over DocsScriptURL.
	DocsScriptFile string `koanf:"docs_script_file"`
}

// New creates a Config holding the defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:              "info",
		Addr:                  ":9080",
		StoreDriver:           DriverMongo,
		MongoURI:              "mongodb://localhost:27017",
		MongoDatabase:         "eatery",
		RestaurantsCollection: "restaurants",
		UsersCollection:       "users",
		ConnectTimeoutMS:      10_000,
		QueryTimeoutMS:        5_000,
		NearbyRadiusMeters:    1000,
		ReferencePolicy:       PolicyCascade,
	}
}

// ConnectTimeout returns ConnectTimeoutMS as a duration.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutMS) * time.Millisecond
}

// QueryTimeout returns QueryTimeoutMS as a duration.
func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutMS) * time.Millisecond
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.StoreDriver != DriverMongo && c.StoreDriver != DriverMemory:
		return fmt.Errorf("%w: %w: store_driver %q", ErrInvalidConfig, ErrUnknownOption, c.StoreDriver)
	case c.StoreDriver == DriverMongo && c.MongoURI == "":
		return fmt.Errorf("%w: mongo_uri must not be empty", ErrInvalidConfig)
	case c.StoreDriver == DriverMongo && c.MongoDatabase == "":
		return fmt.Errorf("%w: mongo_database must not be empty", ErrInvalidConfig)
	case c.ReferencePolicy != PolicyCascade && c.ReferencePolicy != PolicyReject:
		return fmt.Errorf("%w: %w: reference_policy %q", ErrInvalidConfig, ErrUnknownOption, c.ReferencePolicy)
	case c.NearbyRadiusMeters <= 0:
		return fmt.Errorf("%w: nearby_radius_meters must be positive", ErrInvalidConfig)
	case c.ConnectTimeoutMS <= 0 || c.QueryTimeoutMS <= 0:
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	}
	return nil
}
