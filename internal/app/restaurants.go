package service

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/okian/eatery/internal/adapters/repository"
	"github.com/okian/eatery/internal/domain/filter"
	"github.com/okian/eatery/internal/domain/model"
	"github.com/okian/eatery/pkg/logger"
	"github.com/okian/eatery/pkg/metrics"
)

// RestaurantUpdate lists the fields of a partial restaurant update. Long and
// Lat may be given alone; the other coordinate is kept.
type RestaurantUpdate struct {
	RestName *string
	Cuisine  *string
	Long     *float64
	Lat      *float64
}

// NearbyResult is the answer of the nearby query.
type NearbyResult struct {
	Restaurants  []model.Restaurant
	RadiusMeters float64
}

// prepareRestaurant normalises r, derives its slug and validates it.
func (s *Service) prepareRestaurant(r *model.Restaurant) error {
	s.normalizer.Restaurant(r)
	return s.validator.Struct(r)
}

// CreateRestaurant validates and stores a new restaurant.
func (s *Service) CreateRestaurant(ctx context.Context, r model.Restaurant) (*model.Restaurant, error) {
	store, err := s.ready()
	if err != nil {
		return nil, err
	}
	doc := r.Clone()
	doc.ID = primitive.NilObjectID
	if err := s.prepareRestaurant(doc); err != nil {
		return nil, err
	}

	created, err := store.InsertRestaurant(ctx, doc)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			metrics.RecordSlugConflict()
			return nil, fmt.Errorf("%w: uniqueName %q already exists", repository.ErrDuplicate, doc.UniqueName)
		}
		return nil, err
	}
	metrics.RecordRestaurantsCreated(1)
	s.logger.Debug(ctx, "restaurant created",
		logger.String("id", created.ID.Hex()),
		logger.String("uniqueName", created.UniqueName),
	)
	return created, nil
}

// InsertRestaurants validates the whole batch before writing any of it. A
// slug repeated inside the batch, or one already stored, fails the batch.
func (s *Service) InsertRestaurants(ctx context.Context, rs []model.Restaurant) ([]model.Restaurant, error) {
	store, err := s.ready()
	if err != nil {
		return nil, err
	}
	docs := make([]*model.Restaurant, len(rs))
	seen := make(map[string]int, len(rs))
	for i := range rs {
		doc := rs[i].Clone()
		doc.ID = primitive.NilObjectID
		if err := s.prepareRestaurant(doc); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		if j, dup := seen[doc.UniqueName]; dup {
			metrics.RecordSlugConflict()
			return nil, fmt.Errorf("%w: items %d and %d share uniqueName %q", repository.ErrDuplicate, j, i, doc.UniqueName)
		}
		seen[doc.UniqueName] = i
		docs[i] = doc
	}

	slugs := make([]string, len(docs))
	for i, d := range docs {
		slugs[i] = d.UniqueName
	}
	taken, err := store.CountRestaurantsBySlug(ctx, slugs)
	if err != nil {
		return nil, err
	}
	if taken > 0 {
		metrics.RecordSlugConflict()
		return nil, fmt.Errorf("%w: %d uniqueName(s) in the batch already exist", repository.ErrDuplicate, taken)
	}

	out, err := store.InsertRestaurants(ctx, docs)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			metrics.RecordSlugConflict()
		}
		return nil, err
	}
	metrics.RecordRestaurantsCreated(len(out))
	s.logger.Info(ctx, "restaurants inserted", logger.Int("count", len(out)))
	return out, nil
}

// RestaurantByID returns nil without error when no restaurant has the id.
func (s *Service) RestaurantByID(ctx context.Context, hex string) (*model.Restaurant, error) {
	store, err := s.ready()
	if err != nil {
		return nil, err
	}
	id, err := parseID(hex)
	if err != nil {
		return nil, err
	}
	return missingAsNil(store.RestaurantByID(ctx, id))
}

// RestaurantByKey looks key up as a uniqueName first, then as an id.
func (s *Service) RestaurantByKey(ctx context.Context, key string) (*model.Restaurant, error) {
	store, err := s.ready()
	if err != nil {
		return nil, err
	}
	r, err := store.RestaurantBySlug(ctx, key)
	switch {
	case err == nil:
		return r, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}
	return s.RestaurantByID(ctx, key)
}

// SearchRestaurants returns restaurants matching f.
func (s *Service) SearchRestaurants(ctx context.Context, f filter.Restaurant) ([]model.Restaurant, error) {
	store, err := s.ready()
	if err != nil {
		return nil, err
	}
	return store.FindRestaurants(ctx, f)
}

// AllRestaurants returns every restaurant.
func (s *Service) AllRestaurants(ctx context.Context) ([]model.Restaurant, error) {
	return s.SearchRestaurants(ctx, filter.Restaurant{})
}

// NearbyRestaurants returns the restaurants within the configured radius of
// the given restaurant, the restaurant itself included.
func (s *Service) NearbyRestaurants(ctx context.Context, hex string) (NearbyResult, error) {
	store, err := s.ready()
	if err != nil {
		return NearbyResult{}, err
	}
	id, err := parseID(hex)
	if err != nil {
		return NearbyResult{}, err
	}
	center, err := store.RestaurantByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NearbyResult{}, fmt.Errorf("restaurant %s: %w", hex, repository.ErrNotFound)
		}
		return NearbyResult{}, err
	}
	if center.Location == nil {
		return NearbyResult{}, fmt.Errorf("%w: restaurant %s has no location", ErrBadRequest, hex)
	}

	out, err := store.RestaurantsNear(ctx, *center.Location, s.nearbyRadius)
	if err != nil {
		return NearbyResult{}, err
	}
	metrics.RecordNearbyResults(len(out))
	return NearbyResult{Restaurants: out, RadiusMeters: s.nearbyRadius}, nil
}

// UpdateRestaurant merges u into the stored restaurant, validates the result
// and writes only the supplied fields.
func (s *Service) UpdateRestaurant(ctx context.Context, hex string, u RestaurantUpdate) (*model.Restaurant, error) {
	store, err := s.ready()
	if err != nil {
		return nil, err
	}
	id, err := parseID(hex)
	if err != nil {
		return nil, err
	}
	current, err := store.RestaurantByID(ctx, id)
	if err != nil {
		return nil, err
	}

	patch := model.RestaurantPatch{RestName: u.RestName, Cuisine: u.Cuisine}
	if u.Long != nil || u.Lat != nil {
		lng, lat := current.Location.Lng(), current.Location.Lat()
		if u.Long != nil {
			lng = *u.Long
		}
		if u.Lat != nil {
			lat = *u.Lat
		}
		patch.Location = model.NewPoint(lng, lat)
	}
	s.normalizer.RestaurantPatch(&patch)
	if err := s.validator.Struct(patch.Apply(current)); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return current, nil
	}

	updated, err := store.UpdateRestaurant(ctx, id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			metrics.RecordSlugConflict()
		}
		return nil, err
	}
	return updated, nil
}

// DeleteRestaurant removes one restaurant and applies the reference policy.
// It returns nil without error when the id is unknown.
func (s *Service) DeleteRestaurant(ctx context.Context, hex string) (*model.Restaurant, error) {
	store, err := s.ready()
	if err != nil {
		return nil, err
	}
	id, err := parseID(hex)
	if err != nil {
		return nil, err
	}
	ids := []primitive.ObjectID{id}
	if err := s.checkUnreferenced(ctx, store, ids); err != nil {
		return nil, err
	}

	deleted, err := missingAsNil(store.DeleteRestaurant(ctx, id))
	if err != nil || deleted == nil {
		return deleted, err
	}
	if err := s.cascade(ctx, store, ids); err != nil {
		return nil, err
	}
	return deleted, nil
}

// DeleteAllRestaurants empties the collection and applies the reference policy.
func (s *Service) DeleteAllRestaurants(ctx context.Context) (model.DeleteResult, error) {
	store, err := s.ready()
	if err != nil {
		return model.DeleteResult{}, err
	}
	if err := s.checkUnreferenced(ctx, store, nil); err != nil {
		return model.DeleteResult{}, err
	}
	n, err := store.DeleteRestaurants(ctx)
	if err != nil {
		return model.DeleteResult{}, err
	}
	if err := s.cascade(ctx, store, nil); err != nil {
		return model.DeleteResult{}, err
	}
	s.logger.Info(ctx, "restaurants deleted", logger.Int64("count", n))
	return model.DeleteResult{DeletedCount: n}, nil
}

// checkUnreferenced fails under PolicyReject when a user manages any of ids.
func (s *Service) checkUnreferenced(ctx context.Context, store repository.Store, ids []primitive.ObjectID) error {
	if s.policy != PolicyReject {
		return nil
	}
	n, err := store.CountManagers(ctx, ids)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: %d user(s) manage it", ErrReferenced, n)
	}
	return nil
}

// cascade pulls ids out of users under PolicyCascade.
func (s *Service) cascade(ctx context.Context, store repository.Store, ids []primitive.ObjectID) error {
	if s.policy != PolicyCascade {
		return nil
	}
	n, err := store.PullManagedRests(ctx, ids)
	if err != nil {
		return fmt.Errorf("pull managed restaurants: %w", err)
	}
	if n > 0 {
		metrics.RecordReferencesPulled(n)
		s.logger.Debug(ctx, "managed restaurant references pulled", logger.Int64("users", n))
	}
	return nil
}

// missingAsNil turns ErrNotFound into a nil result.
func missingAsNil[T any](v *T, err error) (*T, error) {
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return v, err
}
