package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/okian/eatery/internal/domain/filter"
	"github.com/okian/eatery/internal/domain/model"
)

const defaultQueryTimeout = 5 * time.Second

// MongoStore implements Store on a MongoDB database.
type MongoStore struct {
	client      *mongo.Client
	restaurants *mongo.Collection
	users       *mongo.Collection

	restaurantsName string
	usersName       string
	queryTimeout    time.Duration
}

// Connect dials uri and verifies the primary is reachable.
func Connect(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	client, err := mongo.Connect(cctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", ErrStore, err)
	}
	if err := client.Ping(cctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: ping: %v", ErrStore, err)
	}
	return client, nil
}

// NewMongoStore binds the store to database on client.
func NewMongoStore(client *mongo.Client, database string, opts ...Option) *MongoStore {
	s := &MongoStore{
		client:          client,
		restaurantsName: RestaurantsCollection,
		usersName:       UsersCollection,
		queryTimeout:    defaultQueryTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	db := client.Database(database)
	s.restaurants = db.Collection(s.restaurantsName)
	s.users = db.Collection(s.usersName)
	return s
}

func (s *MongoStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.queryTimeout)
}

// EnsureIndexes creates the uniqueName unique index, the 2dsphere location
// index and the user lookup indexes.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.restaurants.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "uniqueName", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
		{Keys: bson.D{{Key: "cuisine", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("%w: restaurant indexes: %v", ErrStore, err)
	}
	_, err = s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "favCuisines", Value: 1}}},
		{Keys: bson.D{{Key: "managedRests", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("%w: user indexes: %v", ErrStore, err)
	}
	return nil
}

// Ping checks the primary.
func (s *MongoStore) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// translate maps driver errors onto the package sentinels.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %s: %v", ErrDuplicate, op, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%w: %s: %v", ErrStore, op, err)
	}
}

// Restaurants.

func (s *MongoStore) InsertRestaurant(ctx context.Context, r *model.Restaurant) (out *model.Restaurant, err error) {
	defer func(start time.Time) { observe(RestaurantsCollection, "insert_one", start, err) }(time.Now())
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	doc := r.Clone()
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if _, err = s.restaurants.InsertOne(ctx, doc); err != nil {
		return nil, translate("insert restaurant", err)
	}
	return doc, nil
}

// InsertRestaurants writes the batch with an ordered InsertMany. A collision
// stops the write at the colliding item; callers check slugs beforehand.
func (s *MongoStore) InsertRestaurants(ctx context.Context, rs []*model.Restaurant) (out []model.Restaurant, err error) {
	defer func(start time.Time) { observe(RestaurantsCollection, "insert_many", start, err) }(time.Now())
	if len(rs) == 0 {
		return []model.Restaurant{}, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	docs := make([]interface{}, len(rs))
	stored := make([]*model.Restaurant, len(rs))
	for i, r := range rs {
		doc := r.Clone()
		if doc.ID.IsZero() {
			doc.ID = primitive.NewObjectID()
		}
		docs[i], stored[i] = doc, doc
	}
	if _, err = s.restaurants.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		return nil, translate("insert restaurants", err)
	}
	return restaurantValues(stored), nil
}

func (s *MongoStore) RestaurantByID(ctx context.Context, id primitive.ObjectID) (out *model.Restaurant, err error) {
	defer func(start time.Time) { observe(RestaurantsCollection, "find_by_id", start, err) }(time.Now())
	return s.findOneRestaurant(ctx, bson.D{{Key: "_id", Value: id}})
}

func (s *MongoStore) RestaurantBySlug(ctx context.Context, uniqueName string) (out *model.Restaurant, err error) {
	defer func(start time.Time) { observe(RestaurantsCollection, "find_by_slug", start, err) }(time.Now())
	return s.findOneRestaurant(ctx, bson.D{{Key: "uniqueName", Value: uniqueName}})
}

func (s *MongoStore) findOneRestaurant(ctx context.Context, q bson.D) (*model.Restaurant, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var r model.Restaurant
	if err := s.restaurants.FindOne(ctx, q).Decode(&r); err != nil {
		return nil, translate("find restaurant", err)
	}
	return &r, nil
}

func (s *MongoStore) FindRestaurants(ctx context.Context, f filter.Restaurant) (out []model.Restaurant, err error) {
	defer func(start time.Time) { observe(RestaurantsCollection, "find", start, err) }(time.Now())
	return s.findRestaurants(ctx, restaurantQuery(f))
}

// RestaurantsNear uses $centerSphere, which takes its radius in radians.
func (s *MongoStore) RestaurantsNear(ctx context.Context, center model.Point, radiusMeters float64) (out []model.Restaurant, err error) {
	defer func(start time.Time) { observe(RestaurantsCollection, "geo_within", start, err) }(time.Now())
	q := bson.D{{Key: "location", Value: bson.D{{Key: "$geoWithin", Value: bson.D{
		{Key: "$centerSphere", Value: bson.A{
			bson.A{center.Lng(), center.Lat()},
			radiusMeters / EarthRadiusMeters,
		}},
	}}}}}
	return s.findRestaurants(ctx, q)
}

func (s *MongoStore) findRestaurants(ctx context.Context, q bson.D) ([]model.Restaurant, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	cur, err := s.restaurants.Find(ctx, q)
	if err != nil {
		return nil, translate("find restaurants", err)
	}
	out := []model.Restaurant{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, translate("decode restaurants", err)
	}
	if out == nil {
		out = []model.Restaurant{}
	}
	return out, nil
}

func restaurantQuery(f filter.Restaurant) bson.D {
	q := bson.D{}
	if f.RestName != "" {
		q = append(q, bson.E{Key: "restName", Value: f.RestName})
	}
	if f.UniqueName != "" {
		q = append(q, bson.E{Key: "uniqueName", Value: f.UniqueName})
	}
	if f.Cuisine != "" {
		q = append(q, bson.E{Key: "cuisine", Value: f.Cuisine})
	}
	return q
}

func (s *MongoStore) UpdateRestaurant(ctx context.Context, id primitive.ObjectID, patch model.RestaurantPatch) (out *model.Restaurant, err error) {
	defer func(start time.Time) { observe(RestaurantsCollection, "update_one", start, err) }(time.Now())
	set := bson.D{}
	if patch.RestName != nil {
		set = append(set, bson.E{Key: "restName", Value: *patch.RestName})
	}
	if patch.UniqueName != nil {
		set = append(set, bson.E{Key: "uniqueName", Value: *patch.UniqueName})
	}
	if patch.Cuisine != nil {
		set = append(set, bson.E{Key: "cuisine", Value: *patch.Cuisine})
	}
	if patch.Location != nil {
		set = append(set, bson.E{Key: "location", Value: patch.Location})
	}
	if len(set) == 0 {
		return s.findOneRestaurant(ctx, bson.D{{Key: "_id", Value: id}})
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var r model.Restaurant
	err = s.restaurants.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&r)
	if err != nil {
		return nil, translate("update restaurant", err)
	}
	return &r, nil
}

func (s *MongoStore) DeleteRestaurant(ctx context.Context, id primitive.ObjectID) (out *model.Restaurant, err error) {
	defer func(start time.Time) { observe(RestaurantsCollection, "delete_one", start, err) }(time.Now())
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var r model.Restaurant
	if err = s.restaurants.FindOneAndDelete(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&r); err != nil {
		return nil, translate("delete restaurant", err)
	}
	return &r, nil
}

func (s *MongoStore) DeleteRestaurants(ctx context.Context) (n int64, err error) {
	defer func(start time.Time) { observe(RestaurantsCollection, "delete_many", start, err) }(time.Now())
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	res, err := s.restaurants.DeleteMany(ctx, bson.D{})
	if err != nil {
		return 0, translate("delete restaurants", err)
	}
	return res.DeletedCount, nil
}

func (s *MongoStore) CountRestaurants(ctx context.Context) (n int64, err error) {
	defer func(start time.Time) { observe(RestaurantsCollection, "count", start, err) }(time.Now())
	return s.count(ctx, s.restaurants, bson.D{})
}

func (s *MongoStore) CountRestaurantsByID(ctx context.Context, ids []primitive.ObjectID) (n int64, err error) {
	defer func(start time.Time) { observe(RestaurantsCollection, "count_by_id", start, err) }(time.Now())
	if len(ids) == 0 {
		return 0, nil
	}
	return s.count(ctx, s.restaurants, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}})
}

func (s *MongoStore) CountRestaurantsBySlug(ctx context.Context, uniqueNames []string) (n int64, err error) {
	defer func(start time.Time) { observe(RestaurantsCollection, "count_by_slug", start, err) }(time.Now())
	if len(uniqueNames) == 0 {
		return 0, nil
	}
	return s.count(ctx, s.restaurants, bson.D{{Key: "uniqueName", Value: bson.D{{Key: "$in", Value: uniqueNames}}}})
}

func (s *MongoStore) count(ctx context.Context, coll *mongo.Collection, q bson.D) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	n, err := coll.CountDocuments(ctx, q)
	if err != nil {
		return 0, translate("count "+coll.Name(), err)
	}
	return n, nil
}

// Users.

func (s *MongoStore) InsertUser(ctx context.Context, u *model.User) (out *model.User, err error) {
	defer func(start time.Time) { observe(UsersCollection, "insert_one", start, err) }(time.Now())
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	doc := u.Clone()
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if _, err = s.users.InsertOne(ctx, doc); err != nil {
		return nil, translate("insert user", err)
	}
	return doc, nil
}

func (s *MongoStore) InsertUsers(ctx context.Context, us []*model.User) (out []model.User, err error) {
	defer func(start time.Time) { observe(UsersCollection, "insert_many", start, err) }(time.Now())
	if len(us) == 0 {
		return []model.User{}, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	docs := make([]interface{}, len(us))
	stored := make([]*model.User, len(us))
	for i, u := range us {
		doc := u.Clone()
		if doc.ID.IsZero() {
			doc.ID = primitive.NewObjectID()
		}
		docs[i], stored[i] = doc, doc
	}
	if _, err = s.users.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		return nil, translate("insert users", err)
	}
	return userValues(stored), nil
}

func (s *MongoStore) UserByID(ctx context.Context, id primitive.ObjectID) (out *model.User, err error) {
	defer func(start time.Time) { observe(UsersCollection, "find_by_id", start, err) }(time.Now())
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var u model.User
	if err = s.users.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&u); err != nil {
		return nil, translate("find user", err)
	}
	return &u, nil
}

func (s *MongoStore) FindUsers(ctx context.Context, f filter.User) (out []model.User, err error) {
	defer func(start time.Time) { observe(UsersCollection, "find", start, err) }(time.Now())
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cur, err := s.users.Find(ctx, userQuery(f))
	if err != nil {
		return nil, translate("find users", err)
	}
	out = []model.User{}
	if err = cur.All(ctx, &out); err != nil {
		return nil, translate("decode users", err)
	}
	if out == nil {
		out = []model.User{}
	}
	return out, nil
}

func userQuery(f filter.User) bson.D {
	q := bson.D{}
	if f.FirstName != "" {
		q = append(q, bson.E{Key: "fullName.firstName", Value: f.FirstName})
	}
	if f.LastName != "" {
		q = append(q, bson.E{Key: "fullName.lastName", Value: f.LastName})
	}
	if len(f.FavCuisines) > 0 {
		q = append(q, bson.E{Key: "favCuisines", Value: bson.D{{Key: "$all", Value: f.FavCuisines}}})
	}
	if f.ManagedRest != nil {
		q = append(q, bson.E{Key: "managedRests", Value: *f.ManagedRest})
	}
	return q
}

// PopulatedUsers replaces managedRests ids with the restaurant documents.
func (s *MongoStore) PopulatedUsers(ctx context.Context) (out []model.PopulatedUser, err error) {
	defer func(start time.Time) { observe(UsersCollection, "populate", start, err) }(time.Now())
	pipeline := mongo.Pipeline{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: s.restaurantsName},
			{Key: "localField", Value: "managedRests"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "managedRests"},
		}}},
	}
	out = []model.PopulatedUser{}
	err = s.aggregateUsers(ctx, pipeline, &out)
	if out == nil {
		out = []model.PopulatedUser{}
	}
	return out, err
}

// CuisineManagers runs match -> lookup -> match on the joined cuisine.
func (s *MongoStore) CuisineManagers(ctx context.Context, cuisine string) (out []model.CuisineManager, err error) {
	defer func(start time.Time) { observe(UsersCollection, "cuisine_managers", start, err) }(time.Now())
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "favCuisines", Value: cuisine}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: s.restaurantsName},
			{Key: "localField", Value: "managedRests"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "restaurant_info"},
		}}},
		{{Key: "$match", Value: bson.D{{Key: "restaurant_info.cuisine", Value: cuisine}}}},
	}
	out = []model.CuisineManager{}
	err = s.aggregateUsers(ctx, pipeline, &out)
	if out == nil {
		out = []model.CuisineManager{}
	}
	return out, err
}

func (s *MongoStore) aggregateUsers(ctx context.Context, pipeline mongo.Pipeline, results interface{}) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	cur, err := s.users.Aggregate(ctx, pipeline)
	if err != nil {
		return translate("aggregate users", err)
	}
	if err := cur.All(ctx, results); err != nil {
		return translate("decode users", err)
	}
	return nil
}

func (s *MongoStore) UpdateUser(ctx context.Context, id primitive.ObjectID, patch model.UserPatch) (out *model.User, err error) {
	defer func(start time.Time) { observe(UsersCollection, "update_one", start, err) }(time.Now())
	set := bson.D{}
	if patch.FullName != nil {
		set = append(set, bson.E{Key: "fullName", Value: *patch.FullName})
	}
	if patch.FavCuisines != nil {
		set = append(set, bson.E{Key: "favCuisines", Value: *patch.FavCuisines})
	}
	if patch.ManagedRests != nil {
		set = append(set, bson.E{Key: "managedRests", Value: *patch.ManagedRests})
	}
	if len(set) == 0 {
		return s.UserByID(ctx, id)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var u model.User
	err = s.users.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		return nil, translate("update user", err)
	}
	return &u, nil
}

func (s *MongoStore) DeleteUser(ctx context.Context, id primitive.ObjectID) (out *model.User, err error) {
	defer func(start time.Time) { observe(UsersCollection, "delete_one", start, err) }(time.Now())
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var u model.User
	if err = s.users.FindOneAndDelete(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&u); err != nil {
		return nil, translate("delete user", err)
	}
	return &u, nil
}

func (s *MongoStore) DeleteUsers(ctx context.Context) (n int64, err error) {
	defer func(start time.Time) { observe(UsersCollection, "delete_many", start, err) }(time.Now())
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	res, err := s.users.DeleteMany(ctx, bson.D{})
	if err != nil {
		return 0, translate("delete users", err)
	}
	return res.DeletedCount, nil
}

func (s *MongoStore) CountUsers(ctx context.Context) (n int64, err error) {
	defer func(start time.Time) { observe(UsersCollection, "count", start, err) }(time.Now())
	return s.count(ctx, s.users, bson.D{})
}

func (s *MongoStore) CountManagers(ctx context.Context, restIDs []primitive.ObjectID) (n int64, err error) {
	defer func(start time.Time) { observe(UsersCollection, "count_managers", start, err) }(time.Now())
	return s.count(ctx, s.users, managersQuery(restIDs))
}

func (s *MongoStore) PullManagedRests(ctx context.Context, restIDs []primitive.ObjectID) (n int64, err error) {
	defer func(start time.Time) { observe(UsersCollection, "pull_managed", start, err) }(time.Now())
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	update := bson.D{{Key: "$set", Value: bson.D{{Key: "managedRests", Value: bson.A{}}}}}
	if restIDs != nil {
		update = bson.D{{Key: "$pull", Value: bson.D{
			{Key: "managedRests", Value: bson.D{{Key: "$in", Value: restIDs}}},
		}}}
	}
	res, err := s.users.UpdateMany(ctx, managersQuery(restIDs), update)
	if err != nil {
		return 0, translate("pull managed restaurants", err)
	}
	return res.ModifiedCount, nil
}

// managersQuery selects users referencing any of restIDs, or any restaurant
// when restIDs is nil.
func managersQuery(restIDs []primitive.ObjectID) bson.D {
	if restIDs == nil {
		return bson.D{{Key: "managedRests.0", Value: bson.D{{Key: "$exists", Value: true}}}}
	}
	return bson.D{{Key: "managedRests", Value: bson.D{{Key: "$in", Value: restIDs}}}}
}
