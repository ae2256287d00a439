package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/okian/eatery/internal/adapters/repository"
	service "github.com/okian/eatery/internal/app"
	"github.com/okian/eatery/internal/domain/filter"
	"github.com/okian/eatery/internal/domain/model"
	"github.com/okian/eatery/internal/domain/schema"
	. "github.com/smartystreets/goconvey/convey"
)

func user(first, last string, cuisines []string, rests ...primitive.ObjectID) model.User {
	return model.User{
		FullName:     model.FullName{FirstName: first, LastName: last},
		FavCuisines:  cuisines,
		ManagedRests: rests,
	}
}

func TestServiceIntegration_Users(t *testing.T) {
	Convey("Given a service with restaurants and users", t, func() {
		svc := newStarted()
		defer svc.Stop(context.Background())
		ctx := context.Background()

		rests, err := svc.InsertRestaurants(ctx, []model.Restaurant{
			rest("Burger Hub", "burger", 0, 0),
			rest("Pizza Hut", "pizza", 0, 0),
		})
		So(err, ShouldBeNil)
		burger, pizza := rests[0].ID, rests[1].ID

		Convey("When a user is created", func() {
			created, err := svc.CreateUser(ctx, user(" Ahmed ", "HANY", []string{" Burger ", "Pizza"}, burger, pizza, burger))

			Convey("Then names and cuisines are normalised and references deduplicated", func() {
				So(err, ShouldBeNil)
				So(created.FullName, ShouldResemble, model.FullName{FirstName: "ahmed", LastName: "hany"})
				So(created.FavCuisines, ShouldResemble, []string{"burger", "pizza"})
				So(created.ManagedRests, ShouldResemble, []primitive.ObjectID{burger, pizza})
			})

			Convey("And only the last name is updated", func() {
				updated, err := svc.UpdateUser(ctx, created.ID.Hex(), service.UserUpdate{LastName: ptr("Mostafa")})
				So(err, ShouldBeNil)
				So(updated.FullName, ShouldResemble, model.FullName{FirstName: "ahmed", LastName: "mostafa"})
				So(updated.FavCuisines, ShouldResemble, []string{"burger", "pizza"})
			})

			Convey("And the first name is updated with a digit", func() {
				_, err := svc.UpdateUser(ctx, created.ID.Hex(), service.UserUpdate{FirstName: ptr("ahmed2")})
				So(errors.Is(err, schema.ErrValidation), ShouldBeTrue)
			})

			Convey("And it is updated with an unknown restaurant", func() {
				_, err := svc.UpdateUser(ctx, created.ID.Hex(), service.UserUpdate{ManagedRests: &[]primitive.ObjectID{primitive.NewObjectID()}})
				So(errors.Is(err, service.ErrUnknownReference), ShouldBeTrue)
			})

			Convey("And all users are listed with restaurants populated", func() {
				all, err := svc.AllUsers(ctx)
				So(err, ShouldBeNil)
				So(len(all), ShouldEqual, 1)
				So(len(all[0].ManagedRests), ShouldEqual, 2)
				So(all[0].ManagedRests[0].RestName, ShouldEqual, "burger hub")
			})

			Convey("And it is deleted", func() {
				deleted, err := svc.DeleteUser(ctx, created.ID.Hex())
				So(err, ShouldBeNil)
				So(deleted.ID, ShouldEqual, created.ID)
				got, err := svc.UserByID(ctx, created.ID.Hex())
				So(err, ShouldBeNil)
				So(got, ShouldBeNil)
			})
		})

		Convey("When a user name contains a digit", func() {
			_, err := svc.CreateUser(ctx, user("r2d2", "droid", nil))
			So(errors.Is(err, schema.ErrValidation), ShouldBeTrue)
		})

		Convey("When a user references a missing restaurant", func() {
			_, err := svc.CreateUser(ctx, user("a", "b", nil, primitive.NewObjectID()))
			So(errors.Is(err, service.ErrUnknownReference), ShouldBeTrue)
		})

		Convey("When users are bulk inserted", func() {
			out, err := svc.InsertUsers(ctx, []model.User{
				user("ahmed", "hany", []string{"burger"}, burger),
				user("mona", "ali", []string{"burger"}, pizza),
				user("sara", "adel", []string{"pizza"}, burger),
			})
			So(err, ShouldBeNil)
			So(len(out), ShouldEqual, 3)

			Convey("Then the cuisine aggregation keeps fans managing that cuisine", func() {
				managers, err := svc.CuisineManagers(ctx, " BURGER ")
				So(err, ShouldBeNil)
				So(len(managers), ShouldEqual, 1)
				So(managers[0].FullName.FirstName, ShouldEqual, "ahmed")
				So(managers[0].RestaurantInfo[0].Cuisine, ShouldEqual, "burger")
			})

			Convey("Then search matches on cuisine and managed restaurant", func() {
				found, err := svc.SearchUsers(ctx, filter.User{FavCuisines: []string{"burger"}, ManagedRest: &pizza})
				So(err, ShouldBeNil)
				So(len(found), ShouldEqual, 1)
				So(found[0].FullName.FirstName, ShouldEqual, "mona")
			})

			Convey("Then deleting a restaurant cascades into managedRests", func() {
				_, err := svc.DeleteRestaurant(ctx, burger.Hex())
				So(err, ShouldBeNil)
				found, _ := svc.SearchUsers(ctx, filter.User{ManagedRest: &burger})
				So(found, ShouldBeEmpty)
			})

			Convey("Then delete all users empties the collection", func() {
				res, err := svc.DeleteAllUsers(ctx)
				So(err, ShouldBeNil)
				So(res.DeletedCount, ShouldEqual, 3)
			})
		})

		Convey("When a bulk insert has an invalid item", func() {
			_, err := svc.InsertUsers(ctx, []model.User{user("a", "b", nil), user("c", "d", []string{""})})
			So(errors.Is(err, schema.ErrValidation), ShouldBeTrue)
			all, _ := svc.AllUsers(ctx)
			So(all, ShouldBeEmpty)
		})
	})
}

func TestServiceIntegration_RejectPolicy(t *testing.T) {
	Convey("Given a service that rejects deleting managed restaurants", t, func() {
		svc := newStarted(service.WithReferencePolicy(service.PolicyReject), service.WithStore(repository.NewMemoryStore(), "memory"))
		defer svc.Stop(context.Background())
		ctx := context.Background()

		managed, _ := svc.CreateRestaurant(ctx, rest("managed", "pizza", 0, 0))
		free, _ := svc.CreateRestaurant(ctx, rest("free", "pizza", 0, 0))
		_, err := svc.CreateUser(ctx, user("a", "b", nil, managed.ID))
		So(err, ShouldBeNil)

		Convey("When the managed restaurant is deleted", func() {
			_, err := svc.DeleteRestaurant(ctx, managed.ID.Hex())
			So(errors.Is(err, service.ErrReferenced), ShouldBeTrue)
		})

		Convey("When an unmanaged restaurant is deleted", func() {
			deleted, err := svc.DeleteRestaurant(ctx, free.ID.Hex())
			So(err, ShouldBeNil)
			So(deleted.ID, ShouldEqual, free.ID)
		})

		Convey("When every restaurant is deleted", func() {
			_, err := svc.DeleteAllRestaurants(ctx)
			So(errors.Is(err, service.ErrReferenced), ShouldBeTrue)
		})
	})
}

func TestServiceIntegration_Concurrent(t *testing.T) {
	Convey("Given a service with concurrent writers", t, func() {
		svc := newStarted()
		defer svc.Stop(context.Background())
		ctx := context.Background()

		Convey("When the same name is created from many goroutines", func() {
			var wg sync.WaitGroup
			var mu sync.Mutex
			ok := 0
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := svc.CreateRestaurant(ctx, rest("Same Name", "pizza", 0, 0)); err == nil {
						mu.Lock()
						ok++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly one succeeds", func() {
				So(ok, ShouldEqual, 1)
				stats, _ := svc.GetStats(ctx)
				So(stats.Restaurants, ShouldEqual, 1)
			})
		})
	})
}
