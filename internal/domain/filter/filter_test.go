package filter_test

import (
	"errors"
	"net/url"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/okian/eatery/internal/domain/filter"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseRestaurant(t *testing.T) {
	Convey("Given restaurant search parameters", t, func() {
		Convey("When only allow-listed keys are used", func() {
			f, err := filter.ParseRestaurant(url.Values{"cuisine": {" Pizza "}, "restName": {"Pizza Queen"}})

			Convey("Then values are normalised", func() {
				So(err, ShouldBeNil)
				So(f, ShouldResemble, filter.Restaurant{RestName: "pizza queen", Cuisine: "pizza"})
				So(f.Matches("pizza queen", "pizza-queen-0", "pizza"), ShouldBeTrue)
				So(f.Matches("pizza queen", "pizza-queen-0", "sushi"), ShouldBeFalse)
			})
		})

		Convey("When no parameters are given", func() {
			f, err := filter.ParseRestaurant(url.Values{})
			So(err, ShouldBeNil)
			So(f.Empty(), ShouldBeTrue)
			So(f.Matches("a", "b", "c"), ShouldBeTrue)
		})

		Convey("When an operator-style key is injected", func() {
			_, err := filter.ParseRestaurant(url.Values{"$where": {"1"}})
			So(errors.Is(err, filter.ErrInvalidFilter), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "unknown key")
		})

		Convey("When a key is repeated or blank", func() {
			_, err := filter.ParseRestaurant(url.Values{"cuisine": {"a", "b"}})
			So(errors.Is(err, filter.ErrInvalidFilter), ShouldBeTrue)
			_, err = filter.ParseRestaurant(url.Values{"cuisine": {"  "}})
			So(errors.Is(err, filter.ErrInvalidFilter), ShouldBeTrue)
		})
	})
}

func TestParseUser(t *testing.T) {
	Convey("Given user search parameters", t, func() {
		id := primitive.NewObjectID()

		Convey("When every supported key is used", func() {
			f, err := filter.ParseUser(url.Values{
				"firstName":   {"Ahmed"},
				"lastName":    {"hany"},
				"favCuisine":  {"Burger", "pizza"},
				"managedRest": {id.Hex()},
			})

			Convey("Then the filter is typed", func() {
				So(err, ShouldBeNil)
				So(f.FirstName, ShouldEqual, "ahmed")
				So(f.LastName, ShouldEqual, "hany")
				So(f.FavCuisines, ShouldResemble, []string{"burger", "pizza"})
				So(*f.ManagedRest, ShouldEqual, id)
				So(f.Empty(), ShouldBeFalse)
			})
		})

		Convey("When managedRest is not an object id", func() {
			_, err := filter.ParseUser(url.Values{"managedRest": {"nope"}})
			So(errors.Is(err, filter.ErrInvalidFilter), ShouldBeTrue)
		})

		Convey("When an unknown key is supplied", func() {
			_, err := filter.ParseUser(url.Values{"fullName.firstName": {"x"}})
			So(errors.Is(err, filter.ErrInvalidFilter), ShouldBeTrue)
		})

		Convey("When favCuisine is blank", func() {
			_, err := filter.ParseUser(url.Values{"favCuisine": {""}})
			So(errors.Is(err, filter.ErrInvalidFilter), ShouldBeTrue)
		})
	})
}
