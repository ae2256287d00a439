package seed

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/okian/eatery/internal/adapters/repository"
	"github.com/okian/eatery/internal/domain/model"
	"github.com/okian/eatery/pkg/logger"
)

// radiusTolerance absorbs the difference between the store's spherical
// search and our haversine distance right at the boundary.
const radiusTolerance = 0.01

// verifyNearby runs the nearby query around the first stored restaurant.
// Every result must lie inside the radius, and every seeded restaurant well
// inside it must be returned.
func verifyNearby(ctx context.Context, client *Client, rests []model.Restaurant, stats *Stats) error {
	center := rests[0]
	stats.NearbyCenter = center.UniqueName

	resp, err := client.Nearby(ctx, center.ID.Hex())
	if err != nil {
		return fmt.Errorf("nearby query failed: %w", err)
	}
	stats.NearbyFound = resp.Count

	found := make(map[primitive.ObjectID]bool, len(resp.Restaurants))
	for _, r := range resp.Restaurants {
		found[r.ID] = true
		if d := distance(&center, &r); d > resp.RadiusMeters*(1+radiusTolerance) {
			return fmt.Errorf("%w: %s is %.0fm from %s, outside %.0fm", ErrVerification, r.UniqueName, d, center.UniqueName, resp.RadiusMeters)
		}
	}

	for i := range rests {
		r := &rests[i]
		if distance(&center, r) > resp.RadiusMeters*(1-radiusTolerance) {
			continue
		}
		stats.NearbyExpected++
		if !found[r.ID] {
			return fmt.Errorf("%w: %s missing from nearby results of %s", ErrVerification, r.UniqueName, center.UniqueName)
		}
	}

	logger.Get().Info(ctx, "nearby query verified",
		logger.String("center", center.UniqueName),
		logger.Int("found", stats.NearbyFound),
		logger.Int("expected", stats.NearbyExpected))
	return nil
}

// verifyCuisine picks the cuisine favoured by the most seeded managers and
// checks that the aggregation returns each of them.
func verifyCuisine(ctx context.Context, client *Client, rests []model.Restaurant, users []model.User, stats *Stats) error {
	cuisineOf := make(map[primitive.ObjectID]string, len(rests))
	for _, r := range rests {
		cuisineOf[r.ID] = r.Cuisine
	}

	expected := make(map[string]map[primitive.ObjectID]bool)
	for _, u := range users {
		for _, c := range u.FavCuisines {
			for _, id := range u.ManagedRests {
				if cuisineOf[id] != c {
					continue
				}
				if expected[c] == nil {
					expected[c] = make(map[primitive.ObjectID]bool)
				}
				expected[c][u.ID] = true
			}
		}
	}

	best := ""
	for c, ids := range expected {
		if best == "" || len(ids) > len(expected[best]) || (len(ids) == len(expected[best]) && c < best) {
			best = c
		}
	}
	if best == "" {
		logger.Get().Warn(ctx, "no seeded user manages a favoured cuisine; skipping cuisine check")
		return nil
	}
	stats.Cuisine = best
	stats.CuisineExpected = len(expected[best])

	managers, err := client.CuisineManagers(ctx, best)
	if err != nil {
		return fmt.Errorf("cuisine query failed: %w", err)
	}
	stats.CuisineManagers = len(managers)

	returned := make(map[primitive.ObjectID]bool, len(managers))
	for _, m := range managers {
		returned[m.ID] = true
	}
	for id := range expected[best] {
		if !returned[id] {
			return fmt.Errorf("%w: user %s missing from %s managers", ErrVerification, id.Hex(), best)
		}
	}

	logger.Get().Info(ctx, "cuisine query verified",
		logger.String("cuisine", best),
		logger.Int("managers", stats.CuisineManagers),
		logger.Int("expected", stats.CuisineExpected))
	return nil
}

func distance(a, b *model.Restaurant) float64 {
	return repository.Haversine(a.Location.Lng(), a.Location.Lat(), b.Location.Lng(), b.Location.Lat())
}
