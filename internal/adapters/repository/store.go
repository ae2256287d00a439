// Package repository defines the catalogue store interfaces and their
// MongoDB and in-memory implementations.
package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/okian/eatery/internal/domain/filter"
	"github.com/okian/eatery/internal/domain/model"
	"github.com/okian/eatery/pkg/metrics"
)

// EarthRadiusMeters converts metres to radians for spherical radius queries.
const EarthRadiusMeters = 6_378_100.0

// Collection names used for metrics labels and defaults.
const (
	RestaurantsCollection = "restaurants"
	UsersCollection       = "users"
)

// RestaurantStore provides access to the restaurants collection.
type RestaurantStore interface {
	// InsertRestaurant stores r and returns it with its id set.
	// Returns ErrDuplicate when uniqueName is taken.
	InsertRestaurant(ctx context.Context, r *model.Restaurant) (*model.Restaurant, error)
	// InsertRestaurants stores a batch in order.
	InsertRestaurants(ctx context.Context, rs []*model.Restaurant) ([]model.Restaurant, error)

	// RestaurantByID returns ErrNotFound when no document has the id.
	RestaurantByID(ctx context.Context, id primitive.ObjectID) (*model.Restaurant, error)
	// RestaurantBySlug returns ErrNotFound when no document has the uniqueName.
	RestaurantBySlug(ctx context.Context, uniqueName string) (*model.Restaurant, error)
	FindRestaurants(ctx context.Context, f filter.Restaurant) ([]model.Restaurant, error)
	// RestaurantsNear returns restaurants within radiusMeters of center.
	RestaurantsNear(ctx context.Context, center model.Point, radiusMeters float64) ([]model.Restaurant, error)

	// UpdateRestaurant sets the patch fields and returns the updated document.
	UpdateRestaurant(ctx context.Context, id primitive.ObjectID, patch model.RestaurantPatch) (*model.Restaurant, error)

	// DeleteRestaurant removes and returns the document.
	DeleteRestaurant(ctx context.Context, id primitive.ObjectID) (*model.Restaurant, error)
	DeleteRestaurants(ctx context.Context) (int64, error)

	CountRestaurants(ctx context.Context) (int64, error)
	// CountRestaurantsByID counts how many of ids exist.
	CountRestaurantsByID(ctx context.Context, ids []primitive.ObjectID) (int64, error)
	// CountRestaurantsBySlug counts how many of uniqueNames are taken.
	CountRestaurantsBySlug(ctx context.Context, uniqueNames []string) (int64, error)
}

// UserStore provides access to the users collection.
type UserStore interface {
	InsertUser(ctx context.Context, u *model.User) (*model.User, error)
	InsertUsers(ctx context.Context, us []*model.User) ([]model.User, error)

	// UserByID returns ErrNotFound when no document has the id.
	UserByID(ctx context.Context, id primitive.ObjectID) (*model.User, error)
	FindUsers(ctx context.Context, f filter.User) ([]model.User, error)
	// PopulatedUsers returns every user with managedRests resolved.
	PopulatedUsers(ctx context.Context) ([]model.PopulatedUser, error)
	// CuisineManagers returns users whose favCuisines contain cuisine and who
	// manage at least one restaurant of that cuisine.
	CuisineManagers(ctx context.Context, cuisine string) ([]model.CuisineManager, error)

	UpdateUser(ctx context.Context, id primitive.ObjectID, patch model.UserPatch) (*model.User, error)

	DeleteUser(ctx context.Context, id primitive.ObjectID) (*model.User, error)
	DeleteUsers(ctx context.Context) (int64, error)

	CountUsers(ctx context.Context) (int64, error)
	// CountManagers counts users referencing any of restIDs. A nil restIDs
	// counts users referencing any restaurant at all.
	CountManagers(ctx context.Context, restIDs []primitive.ObjectID) (int64, error)
	// PullManagedRests removes restIDs from every user's managedRests and
	// returns the number of users changed. A nil restIDs clears every list.
	PullManagedRests(ctx context.Context, restIDs []primitive.ObjectID) (int64, error)
}

// Store is the full catalogue store.
type Store interface {
	RestaurantStore
	UserStore

	// EnsureIndexes creates the uniqueness and geospatial indexes.
	EnsureIndexes(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// observe records latency and failures of one store call.
func observe(collection, op string, start time.Time, err error) {
	metrics.RecordStoreLatency(collection, op, float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		metrics.RecordStoreError(collection, op, errorKind(err))
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrDuplicate):
		return "duplicate"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "internal"
	}
}

// restaurantValues copies decoded documents out of pointer slices.
func restaurantValues(in []*model.Restaurant) []model.Restaurant {
	out := make([]model.Restaurant, len(in))
	for i, r := range in {
		out[i] = *r
	}
	return out
}

func userValues(in []*model.User) []model.User {
	out := make([]model.User, len(in))
	for i, u := range in {
		out[i] = *u
	}
	return out
}
