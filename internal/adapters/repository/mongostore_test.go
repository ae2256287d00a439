package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/okian/eatery/internal/domain/filter"
	"github.com/okian/eatery/internal/domain/model"
)

// newTestMongoStore connects to EATERY_TEST_MONGO_URI and returns a store on
// a throwaway database, or skips when no server is configured.
func newTestMongoStore(t *testing.T) *MongoStore {
	t.Helper()
	uri := os.Getenv("EATERY_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("EATERY_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	client, err := Connect(ctx, uri, 5*time.Second)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	dbName := "eatery_test_" + primitive.NewObjectID().Hex()
	store := NewMongoStore(client, dbName, WithQueryTimeout(5*time.Second))
	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Database(dbName).Drop(context.Background())
		_ = store.Close(context.Background())
	})
	return store
}

func TestMongoStore_Restaurants(t *testing.T) {
	store := newTestMongoStore(t)
	ctx := context.Background()

	center, err := store.InsertRestaurant(ctx, restaurant("center", "center-0", "pizza", 31.2357, 30.0444))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.InsertRestaurant(ctx, restaurant("near", "near-0", "sushi", 31.2400, 30.0444)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.InsertRestaurant(ctx, restaurant("far", "far-0", "pizza", 31.3000, 30.0444)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.InsertRestaurant(ctx, restaurant("center", "center-0", "pizza", 0, 0)); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	near, err := store.RestaurantsNear(ctx, *center.Location, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(near) != 2 {
		t.Errorf("expected 2 restaurants within 1km, got %d", len(near))
	}

	if n, err := store.CountRestaurantsBySlug(ctx, []string{"near-0", "nowhere-0", "far-0"}); err != nil || n != 2 {
		t.Errorf("expected 2 taken slugs, got %d (%v)", n, err)
	}

	pizza, _ := store.FindRestaurants(ctx, filter.Restaurant{Cuisine: "pizza"})
	if len(pizza) != 2 {
		t.Errorf("expected 2 pizza restaurants, got %d", len(pizza))
	}

	cuisine := "thai"
	updated, err := store.UpdateRestaurant(ctx, center.ID, model.RestaurantPatch{Cuisine: &cuisine})
	if err != nil || updated.Cuisine != "thai" {
		t.Errorf("unexpected update result: %+v (%v)", updated, err)
	}

	if _, err := store.RestaurantByID(ctx, primitive.NewObjectID()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	n, err := store.DeleteRestaurants(ctx)
	if err != nil || n != 3 {
		t.Errorf("expected 3 deleted, got %d (%v)", n, err)
	}
}

func TestMongoStore_UserAggregations(t *testing.T) {
	store := newTestMongoStore(t)
	ctx := context.Background()

	pizza, _ := store.InsertRestaurant(ctx, restaurant("p", "p-0", "pizza", 0, 0))
	sushi, _ := store.InsertRestaurant(ctx, restaurant("s", "s-0", "sushi", 0, 0))
	u, err := store.InsertUser(ctx, &model.User{
		FullName:     model.FullName{FirstName: "ahmed", LastName: "hany"},
		FavCuisines:  []string{"pizza"},
		ManagedRests: []primitive.ObjectID{pizza.ID, sushi.ID},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	managers, err := store.CuisineManagers(ctx, "pizza")
	if err != nil || len(managers) != 1 || len(managers[0].RestaurantInfo) != 2 {
		t.Errorf("unexpected cuisine managers: %+v (%v)", managers, err)
	}
	populated, err := store.PopulatedUsers(ctx)
	if err != nil || len(populated) != 1 || len(populated[0].ManagedRests) != 2 {
		t.Errorf("unexpected populated users: %+v (%v)", populated, err)
	}

	if n, _ := store.PullManagedRests(ctx, []primitive.ObjectID{pizza.ID}); n != 1 {
		t.Errorf("expected 1 user changed, got %d", n)
	}
	got, _ := store.UserByID(ctx, u.ID)
	if len(got.ManagedRests) != 1 || got.ManagedRests[0] != sushi.ID {
		t.Errorf("expected only sushi left, got %v", got.ManagedRests)
	}
}
