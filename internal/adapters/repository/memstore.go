package repository

import (
	"context"
	"math"
	"slices"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/okian/eatery/internal/domain/filter"
	"github.com/okian/eatery/internal/domain/model"
)

// MemoryStore is a Store kept in process memory. It enforces the same
// uniqueName constraint as the Mongo indexes and returns documents in
// insertion order.
type MemoryStore struct {
	mu sync.RWMutex

	restaurants map[primitive.ObjectID]*model.Restaurant
	restOrder   []primitive.ObjectID
	slugs       map[string]primitive.ObjectID

	users     map[primitive.ObjectID]*model.User
	userOrder []primitive.ObjectID
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		restaurants: make(map[primitive.ObjectID]*model.Restaurant),
		slugs:       make(map[string]primitive.ObjectID),
		users:       make(map[primitive.ObjectID]*model.User),
	}
}

func (s *MemoryStore) EnsureIndexes(context.Context) error { return nil }

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close(context.Context) error { return nil }

// Restaurants.

func (s *MemoryStore) InsertRestaurant(ctx context.Context, r *model.Restaurant) (out *model.Restaurant, err error) {
	defer func(start time.Time) { observe(RestaurantsCollection, "insert_one", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.slugs[r.UniqueName]; taken {
		return nil, ErrDuplicate
	}
	doc := s.putRestaurant(r)
	return doc.Clone(), nil
}

// InsertRestaurants writes the whole batch or nothing.
func (s *MemoryStore) InsertRestaurants(ctx context.Context, rs []*model.Restaurant) (out []model.Restaurant, err error) {
	defer func(start time.Time) { observe(RestaurantsCollection, "insert_many", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(rs))
	for _, r := range rs {
		if _, taken := s.slugs[r.UniqueName]; taken {
			return nil, ErrDuplicate
		}
		if _, dup := seen[r.UniqueName]; dup {
			return nil, ErrDuplicate
		}
		seen[r.UniqueName] = struct{}{}
	}
	out = make([]model.Restaurant, 0, len(rs))
	for _, r := range rs {
		out = append(out, *s.putRestaurant(r).Clone())
	}
	return out, nil
}

// putRestaurant stores a copy of r. Callers hold the write lock.
func (s *MemoryStore) putRestaurant(r *model.Restaurant) *model.Restaurant {
	doc := r.Clone()
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	s.restaurants[doc.ID] = doc
	s.restOrder = append(s.restOrder, doc.ID)
	s.slugs[doc.UniqueName] = doc.ID
	return doc
}

func (s *MemoryStore) RestaurantByID(ctx context.Context, id primitive.ObjectID) (out *model.Restaurant, err error) {
	defer func(start time.Time) { observe(RestaurantsCollection, "find_by_id", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.restaurants[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

func (s *MemoryStore) RestaurantBySlug(ctx context.Context, uniqueName string) (out *model.Restaurant, err error) {
	defer func(start time.Time) { observe(RestaurantsCollection, "find_by_slug", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.slugs[uniqueName]
	if !ok {
		return nil, ErrNotFound
	}
	return s.restaurants[id].Clone(), nil
}

func (s *MemoryStore) FindRestaurants(ctx context.Context, f filter.Restaurant) (out []model.Restaurant, err error) {
	defer func(start time.Time) { observe(RestaurantsCollection, "find", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	return s.selectRestaurants(func(r *model.Restaurant) bool {
		return f.Matches(r.RestName, r.UniqueName, r.Cuisine)
	}), nil
}

func (s *MemoryStore) RestaurantsNear(ctx context.Context, center model.Point, radiusMeters float64) (out []model.Restaurant, err error) {
	defer func(start time.Time) { observe(RestaurantsCollection, "geo_within", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	return s.selectRestaurants(func(r *model.Restaurant) bool {
		if r.Location == nil {
			return false
		}
		return Haversine(center.Lng(), center.Lat(), r.Location.Lng(), r.Location.Lat()) <= radiusMeters
	}), nil
}

func (s *MemoryStore) selectRestaurants(keep func(*model.Restaurant) bool) []model.Restaurant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Restaurant{}
	for _, id := range s.restOrder {
		if r := s.restaurants[id]; keep(r) {
			out = append(out, *r.Clone())
		}
	}
	return out
}

func (s *MemoryStore) UpdateRestaurant(ctx context.Context, id primitive.ObjectID, patch model.RestaurantPatch) (out *model.Restaurant, err error) {
	defer func(start time.Time) { observe(RestaurantsCollection, "update_one", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.restaurants[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := patch.Apply(cur)
	if next.UniqueName != cur.UniqueName {
		if owner, taken := s.slugs[next.UniqueName]; taken && owner != id {
			return nil, ErrDuplicate
		}
		delete(s.slugs, cur.UniqueName)
		s.slugs[next.UniqueName] = id
	}
	s.restaurants[id] = next
	return next.Clone(), nil
}

func (s *MemoryStore) DeleteRestaurant(ctx context.Context, id primitive.ObjectID) (out *model.Restaurant, err error) {
	defer func(start time.Time) { observe(RestaurantsCollection, "delete_one", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.restaurants[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.restaurants, id)
	delete(s.slugs, r.UniqueName)
	s.restOrder = slices.DeleteFunc(s.restOrder, func(v primitive.ObjectID) bool { return v == id })
	return r, nil
}

func (s *MemoryStore) DeleteRestaurants(ctx context.Context) (n int64, err error) {
	defer func(start time.Time) { observe(RestaurantsCollection, "delete_many", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n = int64(len(s.restaurants))
	s.restaurants = make(map[primitive.ObjectID]*model.Restaurant)
	s.slugs = make(map[string]primitive.ObjectID)
	s.restOrder = nil
	return n, nil
}

func (s *MemoryStore) CountRestaurants(ctx context.Context) (n int64, err error) {
	defer func(start time.Time) { observe(RestaurantsCollection, "count", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.restaurants)), nil
}

func (s *MemoryStore) CountRestaurantsByID(ctx context.Context, ids []primitive.ObjectID) (n int64, err error) {
	defer func(start time.Time) { observe(RestaurantsCollection, "count_by_id", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := s.restaurants[id]; ok {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) CountRestaurantsBySlug(ctx context.Context, uniqueNames []string) (n int64, err error) {
	defer func(start time.Time) { observe(RestaurantsCollection, "count_by_slug", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{}, len(uniqueNames))
	for _, name := range uniqueNames {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if _, ok := s.slugs[name]; ok {
			n++
		}
	}
	return n, nil
}

// Users.

func (s *MemoryStore) InsertUser(ctx context.Context, u *model.User) (out *model.User, err error) {
	defer func(start time.Time) { observe(UsersCollection, "insert_one", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putUser(u).Clone(), nil
}

func (s *MemoryStore) InsertUsers(ctx context.Context, us []*model.User) (out []model.User, err error) {
	defer func(start time.Time) { observe(UsersCollection, "insert_many", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out = make([]model.User, 0, len(us))
	for _, u := range us {
		out = append(out, *s.putUser(u).Clone())
	}
	return out, nil
}

func (s *MemoryStore) putUser(u *model.User) *model.User {
	doc := u.Clone()
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	s.users[doc.ID] = doc
	s.userOrder = append(s.userOrder, doc.ID)
	return doc
}

func (s *MemoryStore) UserByID(ctx context.Context, id primitive.ObjectID) (out *model.User, err error) {
	defer func(start time.Time) { observe(UsersCollection, "find_by_id", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u.Clone(), nil
}

func (s *MemoryStore) FindUsers(ctx context.Context, f filter.User) (out []model.User, err error) {
	defer func(start time.Time) { observe(UsersCollection, "find", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out = []model.User{}
	for _, id := range s.userOrder {
		if u := s.users[id]; matchUser(f, u) {
			out = append(out, *u.Clone())
		}
	}
	return out, nil
}

func matchUser(f filter.User, u *model.User) bool {
	if f.FirstName != "" && f.FirstName != u.FullName.FirstName {
		return false
	}
	if f.LastName != "" && f.LastName != u.FullName.LastName {
		return false
	}
	for _, c := range f.FavCuisines {
		if !slices.Contains(u.FavCuisines, c) {
			return false
		}
	}
	if f.ManagedRest != nil && !slices.Contains(u.ManagedRests, *f.ManagedRest) {
		return false
	}
	return true
}

// PopulatedUsers drops dangling references the same way $lookup does.
func (s *MemoryStore) PopulatedUsers(ctx context.Context) (out []model.PopulatedUser, err error) {
	defer func(start time.Time) { observe(UsersCollection, "populate", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out = make([]model.PopulatedUser, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		u := s.users[id]
		out = append(out, model.PopulatedUser{
			ID:           u.ID,
			FullName:     u.FullName,
			FavCuisines:  append([]string{}, u.FavCuisines...),
			ManagedRests: s.resolve(u.ManagedRests),
		})
	}
	return out, nil
}

func (s *MemoryStore) CuisineManagers(ctx context.Context, cuisine string) (out []model.CuisineManager, err error) {
	defer func(start time.Time) { observe(UsersCollection, "cuisine_managers", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out = []model.CuisineManager{}
	for _, id := range s.userOrder {
		u := s.users[id]
		if !slices.Contains(u.FavCuisines, cuisine) {
			continue
		}
		joined := s.resolve(u.ManagedRests)
		if !slices.ContainsFunc(joined, func(r model.Restaurant) bool { return r.Cuisine == cuisine }) {
			continue
		}
		out = append(out, model.CuisineManager{User: *u.Clone(), RestaurantInfo: joined})
	}
	return out, nil
}

// resolve looks up ids in order, skipping unknown ones. Callers hold a lock.
func (s *MemoryStore) resolve(ids []primitive.ObjectID) []model.Restaurant {
	out := []model.Restaurant{}
	for _, id := range ids {
		if r, ok := s.restaurants[id]; ok {
			out = append(out, *r.Clone())
		}
	}
	return out
}

func (s *MemoryStore) UpdateUser(ctx context.Context, id primitive.ObjectID, patch model.UserPatch) (out *model.User, err error) {
	defer func(start time.Time) { observe(UsersCollection, "update_one", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := patch.Apply(cur)
	s.users[id] = next
	return next.Clone(), nil
}

func (s *MemoryStore) DeleteUser(ctx context.Context, id primitive.ObjectID) (out *model.User, err error) {
	defer func(start time.Time) { observe(UsersCollection, "delete_one", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.users, id)
	s.userOrder = slices.DeleteFunc(s.userOrder, func(v primitive.ObjectID) bool { return v == id })
	return u, nil
}

func (s *MemoryStore) DeleteUsers(ctx context.Context) (n int64, err error) {
	defer func(start time.Time) { observe(UsersCollection, "delete_many", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n = int64(len(s.users))
	s.users = make(map[primitive.ObjectID]*model.User)
	s.userOrder = nil
	return n, nil
}

func (s *MemoryStore) CountUsers(ctx context.Context) (n int64, err error) {
	defer func(start time.Time) { observe(UsersCollection, "count", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.users)), nil
}

func (s *MemoryStore) CountManagers(ctx context.Context, restIDs []primitive.ObjectID) (n int64, err error) {
	defer func(start time.Time) { observe(UsersCollection, "count_managers", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if references(u, restIDs) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) PullManagedRests(ctx context.Context, restIDs []primitive.ObjectID) (n int64, err error) {
	defer func(start time.Time) { observe(UsersCollection, "pull_managed", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if !references(u, restIDs) {
			continue
		}
		if restIDs == nil {
			u.ManagedRests = []primitive.ObjectID{}
		} else {
			u.ManagedRests = slices.DeleteFunc(u.ManagedRests, func(v primitive.ObjectID) bool {
				return slices.Contains(restIDs, v)
			})
		}
		n++
	}
	return n, nil
}

func references(u *model.User, restIDs []primitive.ObjectID) bool {
	if restIDs == nil {
		return len(u.ManagedRests) > 0
	}
	return slices.ContainsFunc(u.ManagedRests, func(v primitive.ObjectID) bool {
		return slices.Contains(restIDs, v)
	})
}

// Haversine returns the great-circle distance in metres between two
// longitude/latitude pairs on a sphere of EarthRadiusMeters.
func Haversine(lng1, lat1, lng2, lat2 float64) float64 {
	const rad = math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(a)))
}
