package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/eatery/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.StoreDriver, convey.ShouldEqual, config.DriverMongo)
			convey.So(cfg.MongoDatabase, convey.ShouldEqual, "eatery")
			convey.So(cfg.NearbyRadiusMeters, convey.ShouldEqual, 1000)
			convey.So(cfg.ReferencePolicy, convey.ShouldEqual, config.PolicyCascade)
			convey.So(cfg.QueryTimeout(), convey.ShouldEqual, 5*time.Second)
			convey.So(cfg.ConnectTimeout(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a valid config", t, func() {
		cfg := config.New(context.Background())

		cases := []struct {
			name   string
			mutate func(*config.Config)
		}{
			{"empty addr", func(c *config.Config) { c.Addr = "" }},
			{"unknown driver", func(c *config.Config) { c.StoreDriver = "redis" }},
			{"empty mongo uri", func(c *config.Config) { c.MongoURI = "" }},
			{"empty database", func(c *config.Config) { c.MongoDatabase = "" }},
			{"unknown policy", func(c *config.Config) { c.ReferencePolicy = "ignore" }},
			{"zero radius", func(c *config.Config) { c.NearbyRadiusMeters = 0 }},
			{"negative timeout", func(c *config.Config) { c.QueryTimeoutMS = -1 }},
		}
		for _, tc := range cases {
			convey.Convey("When it has "+tc.name, func() {
				tc.mutate(cfg)
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}

		convey.Convey("When the driver is misspelt", func() {
			cfg.StoreDriver = "mongodb"
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrUnknownOption), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, `"mongodb"`)
		})

		convey.Convey("When the memory driver has no mongo settings", func() {
			cfg.StoreDriver = config.DriverMemory
			cfg.MongoURI = ""
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
