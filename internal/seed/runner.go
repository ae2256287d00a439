package seed

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/okian/eatery/pkg/logger"
)

// Run seeds the service behind cfg.BaseURL and verifies the geo and cuisine
// queries against what it stored.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	if cfg.Restaurants <= 0 || cfg.Users < 0 {
		return nil, fmt.Errorf("%w: need at least one restaurant and a non-negative user count", ErrInvalidConfig)
	}
	cfg = cfg.withDefaults()
	log := logger.Get()
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting eatery seed",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("restaurants", cfg.Restaurants),
		logger.Int("users", cfg.Users),
		logger.Int("batchSize", cfg.BatchSize),
		logger.Int("workers", cfg.Workers),
		logger.Bool("reset", cfg.Reset))

	client := NewClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check service health
	if err := client.Healthy(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Optionally start from an empty catalogue
	if cfg.Reset {
		if err := client.Reset(ctx); err != nil {
			return nil, fmt.Errorf("reset failed: %w", err)
		}
		log.Info(ctx, "catalogue cleared")
	}

	// Step 3: Restaurants
	restInputs := GenerateRestaurants(cfg)
	stats.RestaurantsGenerated = len(restInputs)
	rests, failed := insertBatches(ctx, cfg, "restaurants", restInputs, client.InsertRestaurants)
	stats.RestaurantsInserted = len(rests)
	stats.BatchesFailed += failed
	if len(rests) == 0 {
		return stats, fmt.Errorf("%w: no restaurant was stored", ErrVerification)
	}
	log.Info(ctx, "restaurants inserted", logger.Int("count", len(rests)), logger.Int("failedBatches", failed))

	// Step 4: Users managing the stored restaurants
	userInputs := GenerateUsers(cfg, rests)
	stats.UsersGenerated = len(userInputs)
	users, failed := insertBatches(ctx, cfg, "users", userInputs, client.InsertUsers)
	stats.UsersInserted = len(users)
	stats.BatchesFailed += failed
	log.Info(ctx, "users inserted", logger.Int("count", len(users)), logger.Int("failedBatches", failed))

	// Step 5: Verify the queries
	if err := verifyNearby(ctx, client, rests, stats); err != nil {
		return stats, err
	}
	if err := verifyCuisine(ctx, client, rests, users, stats); err != nil {
		return stats, err
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	if stats.BatchesFailed > 0 {
		return stats, fmt.Errorf("%w: %d batches failed", ErrVerification, stats.BatchesFailed)
	}

	log.Info(ctx, "seed completed successfully", logger.Duration("duration", stats.Duration))
	return stats, nil
}

// PrintSummary writes the final statistics in a human readable block.
func PrintSummary(w io.Writer, stats *Stats) {
	if stats == nil {
		return
	}
	_, _ = fmt.Fprintf(w, `Seed summary
============
Restaurants: %d/%d inserted
Users:       %d/%d inserted
Failed batches: %d
Nearby %s: %d found (%d seeded within radius)
Cuisine %q: %d managers (%d expected)
Duration: %s
`,
		stats.RestaurantsInserted, stats.RestaurantsGenerated,
		stats.UsersInserted, stats.UsersGenerated,
		stats.BatchesFailed,
		stats.NearbyCenter, stats.NearbyFound, stats.NearbyExpected,
		stats.Cuisine, stats.CuisineManagers, stats.CuisineExpected,
		stats.Duration)
}
