package seed

import "time"

// Config holds configuration for a seeding run.
type Config struct {
	BaseURL      string        // Base URL of the service
	Restaurants  int           // Number of restaurants to generate
	Users        int           // Number of users to generate
	BatchSize    int           // Documents per bulk insert request
	Workers      int           // Concurrent bulk insert requests
	Timeout      time.Duration // HTTP request timeout
	CenterLng    float64       // Longitude restaurants are scattered around
	CenterLat    float64       // Latitude restaurants are scattered around
	SpreadMeters float64       // Maximum distance from the centre
	MaxManaged   int           // Upper bound of managedRests per user
	Reset        bool          // Delete every user and restaurant first
	Verbose      bool          // Enable debug logging
}

// Defaults used by cmd/seed.
const (
	DefaultRestaurants  = 200
	DefaultUsers        = 50
	DefaultBatchSize    = 50
	DefaultWorkers      = 4
	DefaultTimeout      = 30 * time.Second
	DefaultCenterLng    = -73.9857
	DefaultCenterLat    = 40.7484
	DefaultSpreadMeters = 3000
	DefaultMaxManaged   = 3
)

// withDefaults fills zero values.
func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.SpreadMeters <= 0 {
		c.SpreadMeters = DefaultSpreadMeters
	}
	if c.MaxManaged <= 0 {
		c.MaxManaged = DefaultMaxManaged
	}
	return c
}

// Stats holds run statistics.
type Stats struct {
	RestaurantsGenerated int
	RestaurantsInserted  int
	UsersGenerated       int
	UsersInserted        int
	BatchesFailed        int
	NearbyCenter         string
	NearbyFound          int
	NearbyExpected       int
	Cuisine              string
	CuisineManagers      int
	CuisineExpected      int
	StartTime            time.Time
	EndTime              time.Time
	Duration             time.Duration
}

// RestaurantInput is the create body of a restaurant.
type RestaurantInput struct {
	RestName string  `json:"restName"`
	Cuisine  string  `json:"cuisine"`
	Long     float64 `json:"long"`
	Lat      float64 `json:"lat"`
}

// FullName is the name part of a user body.
type FullName struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// UserInput is the create body of a user.
type UserInput struct {
	FullName     FullName `json:"fullName"`
	FavCuisines  []string `json:"favCuisines"`
	ManagedRests []string `json:"managedRests"`
}
