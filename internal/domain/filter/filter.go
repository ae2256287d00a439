// Package filter turns search query parameters into typed, allow-listed
// filters. Keys outside the allow-list are rejected instead of being passed
// through to the store.
package filter

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrInvalidFilter is returned for unknown keys or malformed values.
var ErrInvalidFilter = errors.New("invalid filter")

// Query parameter names accepted by restaurant search.
const (
	KeyRestName   = "restName"
	KeyUniqueName = "uniqueName"
	KeyCuisine    = "cuisine"
)

// Query parameter names accepted by user search.
const (
	KeyFirstName   = "firstName"
	KeyLastName    = "lastName"
	KeyFavCuisine  = "favCuisine"
	KeyManagedRest = "managedRest"
)

// Restaurant filters restaurants by field equality. Empty fields do not
// constrain the result.
type Restaurant struct {
	RestName   string
	UniqueName string
	Cuisine    string
}

// Empty reports whether the filter matches every restaurant.
func (f Restaurant) Empty() bool {
	return f.RestName == "" && f.UniqueName == "" && f.Cuisine == ""
}

// Matches reports whether the given field values satisfy the filter.
func (f Restaurant) Matches(restName, uniqueName, cuisine string) bool {
	return (f.RestName == "" || f.RestName == restName) &&
		(f.UniqueName == "" || f.UniqueName == uniqueName) &&
		(f.Cuisine == "" || f.Cuisine == cuisine)
}

// User filters users. Every FavCuisines entry must be present on a match.
type User struct {
	FirstName   string
	LastName    string
	FavCuisines []string
	ManagedRest *primitive.ObjectID
}

// Empty reports whether the filter matches every user.
func (f User) Empty() bool {
	return f.FirstName == "" && f.LastName == "" && len(f.FavCuisines) == 0 && f.ManagedRest == nil
}

// ParseRestaurant builds a restaurant filter from query parameters.
func ParseRestaurant(q url.Values) (Restaurant, error) {
	var f Restaurant
	for _, key := range sortedKeys(q) {
		val, err := single(q, key)
		if err != nil {
			return Restaurant{}, err
		}
		switch key {
		case KeyRestName:
			f.RestName = val
		case KeyUniqueName:
			f.UniqueName = val
		case KeyCuisine:
			f.Cuisine = val
		default:
			return Restaurant{}, unknownKey(key)
		}
	}
	return f, nil
}

// ParseUser builds a user filter from query parameters. favCuisine may repeat.
func ParseUser(q url.Values) (User, error) {
	var f User
	for _, key := range sortedKeys(q) {
		switch key {
		case KeyFavCuisine:
			for _, raw := range q[key] {
				v := normalize(raw)
				if v == "" {
					return User{}, fmt.Errorf("%w: %s must not be empty", ErrInvalidFilter, key)
				}
				f.FavCuisines = append(f.FavCuisines, v)
			}
			continue
		}
		val, err := single(q, key)
		if err != nil {
			return User{}, err
		}
		switch key {
		case KeyFirstName:
			f.FirstName = val
		case KeyLastName:
			f.LastName = val
		case KeyManagedRest:
			id, err := primitive.ObjectIDFromHex(val)
			if err != nil {
				return User{}, fmt.Errorf("%w: %s is not an object id", ErrInvalidFilter, key)
			}
			f.ManagedRest = &id
		default:
			return User{}, unknownKey(key)
		}
	}
	return f, nil
}

func single(q url.Values, key string) (string, error) {
	vals := q[key]
	if len(vals) != 1 {
		return "", fmt.Errorf("%w: %s must be given once", ErrInvalidFilter, key)
	}
	v := normalize(vals[0])
	if v == "" {
		return "", fmt.Errorf("%w: %s must not be empty", ErrInvalidFilter, key)
	}
	return v, nil
}

// normalize mirrors the lowercase setters on the stored fields.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func unknownKey(key string) error {
	return fmt.Errorf("%w: unknown key %q", ErrInvalidFilter, key)
}

func sortedKeys(q url.Values) []string {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
