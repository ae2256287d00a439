package repository

import "time"

// Option applies a configuration option to the MongoStore.
type Option func(*MongoStore)

// WithRestaurantsCollection overrides the restaurants collection name.
func WithRestaurantsCollection(name string) Option {
	return func(s *MongoStore) {
		if name != "" {
			s.restaurantsName = name
		}
	}
}

// WithUsersCollection overrides the users collection name.
func WithUsersCollection(name string) Option {
	return func(s *MongoStore) {
		if name != "" {
			s.usersName = name
		}
	}
}

// WithQueryTimeout bounds every store call.
func WithQueryTimeout(timeout time.Duration) Option {
	return func(s *MongoStore) {
		if timeout > 0 {
			s.queryTimeout = timeout
		}
	}
}
