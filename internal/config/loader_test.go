package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/eatery/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, "mongo")
				convey.So(cfg.MongoURI, convey.ShouldEqual, "mongodb://localhost:27017")
				convey.So(cfg.ReferencePolicy, convey.ShouldEqual, "cascade")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("EATERY_ADDR", ":8080")
			_ = os.Setenv("EATERY_STORE_DRIVER", "Memory")
			_ = os.Setenv("EATERY_NEARBY_RADIUS_METERS", "2500")
			_ = os.Setenv("EATERY_QUERY_TIMEOUT_MS", "750")
			_ = os.Setenv("EATERY_REFERENCE_POLICY", "reject")
			_ = os.Setenv("EATERY_DOCS_SCRIPT_FILE", "/srv/redoc.standalone.js")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, config.DriverMemory)
				convey.So(cfg.NearbyRadiusMeters, convey.ShouldEqual, 2500)
				convey.So(cfg.QueryTimeoutMS, convey.ShouldEqual, 750)
				convey.So(cfg.ReferencePolicy, convey.ShouldEqual, config.PolicyReject)
				convey.So(cfg.DocsScriptFile, convey.ShouldEqual, "/srv/redoc.standalone.js")
				convey.So(cfg.DocsScriptURL, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
mongo_uri: "mongodb://db:27017"
mongo_database: "catalogue"
restaurants_collection: "rests"
nearby_radius_meters: 1500
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("EATERY_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.MongoURI, convey.ShouldEqual, "mongodb://db:27017")
				convey.So(cfg.MongoDatabase, convey.ShouldEqual, "catalogue")
				convey.So(cfg.RestaurantsCollection, convey.ShouldEqual, "rests")
				convey.So(cfg.UsersCollection, convey.ShouldEqual, "users")
				convey.So(cfg.NearbyRadiusMeters, convey.ShouldEqual, 1500)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
mongo_database: "catalogue"
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("EATERY_CONFIG", tmpFile)
			_ = os.Setenv("EATERY_ADDR", ":8080") // This should override the file
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.MongoDatabase, convey.ShouldEqual, "catalogue")
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("EATERY_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("EATERY_CONFIG", "/non/existent/eatery.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the loaded values are invalid", func() {
			_ = os.Setenv("EATERY_STORE_DRIVER", "postgres")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then validation rejects them", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the radius is not positive", func() {
			_ = os.Setenv("EATERY_NEARBY_RADIUS_METERS", "-5")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

func clearConfigEnvVars() {
	for _, key := range []string{
		"EATERY_CONFIG",
		"EATERY_ADDR",
		"EATERY_LOG_LEVEL",
		"EATERY_STORE_DRIVER",
		"EATERY_MONGO_URI",
		"EATERY_MONGO_DATABASE",
		"EATERY_NEARBY_RADIUS_METERS",
		"EATERY_QUERY_TIMEOUT_MS",
		"EATERY_REFERENCE_POLICY",
		"EATERY_DOCS_SCRIPT_URL",
		"EATERY_DOCS_SCRIPT_FILE",
	} {
		_ = os.Unsetenv(key)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "eatery-config-*.yaml")
	if err != nil {
		panic(err)
	}
	defer func() { _ = tmpFile.Close() }()

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
