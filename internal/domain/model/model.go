// Package model contains the documents stored in the restaurants and users
// collections and the shapes derived from them.
package model

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PointType is the only GeoJSON geometry the catalogue stores.
const PointType = "Point"

// Point is a GeoJSON point. Coordinates are [longitude, latitude].
type Point struct {
	Type        string    `bson:"type" json:"type" validate:"required,eq=Point"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates" validate:"required,lnglat"`
}

// NewPoint builds a Point from a longitude/latitude pair.
func NewPoint(lng, lat float64) *Point {
	return &Point{Type: PointType, Coordinates: []float64{lng, lat}}
}

// Lng returns the longitude, or 0 for a malformed point.
func (p *Point) Lng() float64 {
	if p == nil || len(p.Coordinates) < 1 {
		return 0
	}
	return p.Coordinates[0]
}

// Lat returns the latitude, or 0 for a malformed point.
func (p *Point) Lat() float64 {
	if p == nil || len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[1]
}

// Restaurant is a document of the restaurants collection.
type Restaurant struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	RestName   string             `bson:"restName" json:"restName" validate:"required,nomarkup"`
	UniqueName string             `bson:"uniqueName" json:"uniqueName" validate:"required"`
	Cuisine    string             `bson:"cuisine" json:"cuisine" validate:"required,nomarkup"`
	Location   *Point             `bson:"location,omitempty" json:"location,omitempty" validate:"required"`
}

// Clone returns a deep copy.
func (r *Restaurant) Clone() *Restaurant {
	if r == nil {
		return nil
	}
	c := *r
	if r.Location != nil {
		loc := *r.Location
		loc.Coordinates = append([]float64(nil), r.Location.Coordinates...)
		c.Location = &loc
	}
	return &c
}

// RestaurantPatch lists the fields an update may set. Nil means untouched.
type RestaurantPatch struct {
	RestName   *string
	UniqueName *string
	Cuisine    *string
	Location   *Point
}

// Empty reports whether the patch changes nothing.
func (p RestaurantPatch) Empty() bool {
	return p.RestName == nil && p.UniqueName == nil && p.Cuisine == nil && p.Location == nil
}

// Apply returns a copy of r with the patch applied.
func (p RestaurantPatch) Apply(r *Restaurant) *Restaurant {
	out := r.Clone()
	if p.RestName != nil {
		out.RestName = *p.RestName
	}
	if p.UniqueName != nil {
		out.UniqueName = *p.UniqueName
	}
	if p.Cuisine != nil {
		out.Cuisine = *p.Cuisine
	}
	if p.Location != nil {
		loc := *p.Location
		loc.Coordinates = append([]float64(nil), p.Location.Coordinates...)
		out.Location = &loc
	}
	return out
}

// FullName holds a user's name parts.
type FullName struct {
	FirstName string `bson:"firstName" json:"firstName" validate:"required,nodigit,nomarkup"`
	LastName  string `bson:"lastName" json:"lastName" validate:"required,nodigit,nomarkup"`
}

// User is a document of the users collection.
type User struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	FullName     FullName             `bson:"fullName" json:"fullName"`
	FavCuisines  []string             `bson:"favCuisines" json:"favCuisines" validate:"dive,required,lowercase,nomarkup"`
	ManagedRests []primitive.ObjectID `bson:"managedRests" json:"managedRests" validate:"unique"`
}

// Clone returns a deep copy.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.FavCuisines = append([]string(nil), u.FavCuisines...)
	c.ManagedRests = append([]primitive.ObjectID(nil), u.ManagedRests...)
	return &c
}

// UserPatch lists the fields a user update may set. Nil means untouched.
type UserPatch struct {
	FullName     *FullName
	FavCuisines  *[]string
	ManagedRests *[]primitive.ObjectID
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.FullName == nil && p.FavCuisines == nil && p.ManagedRests == nil
}

// Apply returns a copy of u with the patch applied.
func (p UserPatch) Apply(u *User) *User {
	out := u.Clone()
	if p.FullName != nil {
		out.FullName = *p.FullName
	}
	if p.FavCuisines != nil {
		out.FavCuisines = append([]string(nil), (*p.FavCuisines)...)
	}
	if p.ManagedRests != nil {
		out.ManagedRests = append([]primitive.ObjectID(nil), (*p.ManagedRests)...)
	}
	return out
}

// PopulatedUser is a user whose managedRests references were resolved.
type PopulatedUser struct {
	ID           primitive.ObjectID `bson:"_id" json:"_id"`
	FullName     FullName           `bson:"fullName" json:"fullName"`
	FavCuisines  []string           `bson:"favCuisines" json:"favCuisines"`
	ManagedRests []Restaurant       `bson:"managedRests" json:"managedRests"`
}

// CuisineManager is a user returned by the cuisine aggregation, carrying the
// joined restaurants it manages.
type CuisineManager struct {
	User           `bson:",inline"`
	RestaurantInfo []Restaurant `bson:"restaurant_info" json:"restaurant_info"`
}

// DeleteResult reports how many documents a bulk delete removed.
type DeleteResult struct {
	DeletedCount int64 `json:"deletedCount"`
}
