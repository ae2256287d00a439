package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/eatery/internal/seed"
)

const defaultRunTimeout = 10 * time.Minute

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9080", "Base URL of the service")
		restaurants = flag.Int("restaurants", seed.DefaultRestaurants, "Number of restaurants to generate")
		users       = flag.Int("users", seed.DefaultUsers, "Number of users to generate")
		batch       = flag.Int("batch", seed.DefaultBatchSize, "Documents per bulk insert request")
		workers     = flag.Int("workers", seed.DefaultWorkers, "Concurrent bulk insert requests")
		lng         = flag.Float64("lng", seed.DefaultCenterLng, "Longitude of the centre")
		lat         = flag.Float64("lat", seed.DefaultCenterLat, "Latitude of the centre")
		spread      = flag.Float64("spread", seed.DefaultSpreadMeters, "Maximum distance from the centre in metres")
		reset       = flag.Bool("reset", false, "Delete every user and restaurant before seeding")
		timeout     = flag.Duration("timeout", seed.DefaultTimeout, "HTTP request timeout")
		verbose     = flag.Bool("verbose", false, "Enable debug logging")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		seed.ShowHelp(os.Stdout)
		return
	}

	if err := seed.SetupLogging(*verbose); err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	stats, err := seed.Run(ctx, seed.Config{
		BaseURL:      *baseURL,
		Restaurants:  *restaurants,
		Users:        *users,
		BatchSize:    *batch,
		Workers:      *workers,
		Timeout:      *timeout,
		CenterLng:    *lng,
		CenterLat:    *lat,
		SpreadMeters: *spread,
		Reset:        *reset,
		Verbose:      *verbose,
	})
	seed.PrintSummary(os.Stdout, stats)
	if err != nil {
		_, _ = os.Stderr.WriteString("Seed failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
