package seed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/okian/eatery/internal/adapters/http/api"
	"github.com/okian/eatery/internal/adapters/repository"
	service "github.com/okian/eatery/internal/app"
	"github.com/okian/eatery/internal/domain/model"
	"github.com/okian/eatery/pkg/logger"
)

func init() {
	if err := SetupLogging(false); err != nil {
		panic(err)
	}
}

func newCatalogue(t *testing.T) *httptest.Server {
	t.Helper()
	svc := service.New(service.WithStore(repository.NewMemoryStore(), "memory"))
	if err := svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(context.Background(), mux)
	srv := httptest.NewServer(api.CORS(api.RequestLogger(logger.Get(), mux)))
	t.Cleanup(func() {
		srv.Close()
		svc.Stop(context.Background())
	})
	return srv
}

func TestGenerateRestaurants(t *testing.T) {
	convey.Convey("Given a generator config", t, func() {
		cfg := Config{Restaurants: 100, CenterLng: 13.405, CenterLat: 52.52, SpreadMeters: 2000}

		rests := GenerateRestaurants(cfg)

		convey.Convey("Then every restaurant lies within the spread", func() {
			convey.So(rests, convey.ShouldHaveLength, 100)
			for _, r := range rests {
				d := repository.Haversine(cfg.CenterLng, cfg.CenterLat, r.Long, r.Lat)
				convey.So(d, convey.ShouldBeLessThanOrEqualTo, 2000*1.001)
			}
		})

		convey.Convey("And names do not repeat", func() {
			seen := make(map[string]bool)
			for _, r := range rests {
				convey.So(seen[r.RestName], convey.ShouldBeFalse)
				seen[r.RestName] = true
				convey.So(cuisines, convey.ShouldContain, r.Cuisine)
			}
		})
	})
}

func TestGenerateUsers(t *testing.T) {
	convey.Convey("Given stored restaurants", t, func() {
		rests := make([]model.Restaurant, 10)
		for i := range rests {
			rests[i] = model.Restaurant{ID: primitive.NewObjectID(), Cuisine: cuisines[i%len(cuisines)]}
		}
		cuisineOf := make(map[string]string)
		for _, r := range rests {
			cuisineOf[r.ID.Hex()] = r.Cuisine
		}

		users := GenerateUsers(Config{Users: 40, MaxManaged: 4}, rests)

		convey.Convey("Then managed ids are distinct known restaurants", func() {
			convey.So(users, convey.ShouldHaveLength, 40)
			for _, u := range users {
				convey.So(len(u.ManagedRests), convey.ShouldBeLessThanOrEqualTo, 4)
				seen := make(map[string]bool)
				for _, id := range u.ManagedRests {
					convey.So(cuisineOf, convey.ShouldContainKey, id)
					convey.So(seen[id], convey.ShouldBeFalse)
					seen[id] = true
				}
				convey.So(strings.ContainsAny(u.FullName.FirstName+u.FullName.LastName, "0123456789"), convey.ShouldBeFalse)
			}
		})

		convey.Convey("And a manager favours the cuisine of its first restaurant", func() {
			for _, u := range users {
				convey.So(u.FavCuisines, convey.ShouldNotBeEmpty)
				if len(u.ManagedRests) > 0 {
					convey.So(u.FavCuisines[0], convey.ShouldEqual, cuisineOf[u.ManagedRests[0]])
				}
			}
		})
	})
}

func TestChunk(t *testing.T) {
	convey.Convey("Given seven items", t, func() {
		items := []int{1, 2, 3, 4, 5, 6, 7}

		convey.So(chunk(items, 3), convey.ShouldResemble, [][]int{{1, 2, 3}, {4, 5, 6}, {7}})
		convey.So(chunk(items, 7), convey.ShouldResemble, [][]int{items})
		convey.So(chunk([]int{}, 3), convey.ShouldBeEmpty)
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a running catalogue", t, func() {
		srv := newCatalogue(t)
		cfg := Config{
			BaseURL:      srv.URL,
			Restaurants:  60,
			Users:        20,
			BatchSize:    7,
			Workers:      3,
			CenterLng:    DefaultCenterLng,
			CenterLat:    DefaultCenterLat,
			SpreadMeters: 1500,
			Reset:        true,
		}

		convey.Convey("When the seed runs", func() {
			stats, err := Run(context.Background(), cfg)

			convey.Convey("Then everything is stored and both queries agree", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(stats.RestaurantsInserted, convey.ShouldEqual, 60)
				convey.So(stats.UsersInserted, convey.ShouldEqual, 20)
				convey.So(stats.BatchesFailed, convey.ShouldEqual, 0)
				convey.So(stats.NearbyFound, convey.ShouldBeGreaterThanOrEqualTo, stats.NearbyExpected)
				convey.So(stats.NearbyExpected, convey.ShouldBeGreaterThanOrEqualTo, 1)
				convey.So(stats.CuisineManagers, convey.ShouldBeGreaterThanOrEqualTo, stats.CuisineExpected)
			})

			convey.Convey("And a second reset run starts from scratch", func() {
				stats, err := Run(context.Background(), cfg)
				convey.So(err, convey.ShouldBeNil)
				convey.So(stats.RestaurantsInserted, convey.ShouldEqual, 60)

				var sb strings.Builder
				PrintSummary(&sb, stats)
				convey.So(sb.String(), convey.ShouldContainSubstring, "Restaurants: 60/60 inserted")
			})
		})
	})
}

func TestRunFailures(t *testing.T) {
	convey.Convey("Given a config without restaurants", t, func() {
		_, err := Run(context.Background(), Config{BaseURL: "http://127.0.0.1:0"})
		convey.So(errors.Is(err, ErrInvalidConfig), convey.ShouldBeTrue)
	})

	convey.Convey("Given a service that rejects every insert", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" {
				w.WriteHeader(http.StatusOK)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"message":"duplicate key","error":{"kind":"duplicate","op":"service.insert_restaurants"}}`))
		}))
		defer srv.Close()

		stats, err := Run(context.Background(), Config{BaseURL: srv.URL, Restaurants: 10, BatchSize: 5})

		convey.Convey("Then the run fails verification and counts the batches", func() {
			convey.So(errors.Is(err, ErrVerification), convey.ShouldBeTrue)
			convey.So(stats.BatchesFailed, convey.ShouldEqual, 2)
			convey.So(stats.RestaurantsInserted, convey.ShouldEqual, 0)
		})

		convey.Convey("And the client surfaces the error kind", func() {
			_, err := NewClient(srv.URL, DefaultTimeout).InsertRestaurants(context.Background(), nil)
			convey.So(errors.Is(err, ErrUnexpectedStatus), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "duplicate")
		})
	})
}
