package swagger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/smartystreets/goconvey/convey"
)

func TestSwaggerHandler(t *testing.T) {
	convey.Convey("Given a swagger handler", t, func() {
		ctx := context.Background()
		mux := http.NewServeMux()

		convey.Convey("When registering the swagger handler", func() {
			Register(ctx, mux)

			convey.Convey("Then it should handle /openapi.yaml route", func() {
				req := httptest.NewRequest("GET", "/openapi.yaml", http.NoBody)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)

				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Header().Get("Content-Type"), convey.ShouldEqual, "application/yaml; charset=utf-8")
				convey.So(w.Body.Len(), convey.ShouldBeGreaterThan, 0)
			})

			convey.Convey("And it should handle /api-docs route", func() {
				req := httptest.NewRequest("GET", "/api-docs", http.NoBody)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)

				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Header().Get("Content-Type"), convey.ShouldEqual, "text/html; charset=utf-8")
				convey.So(w.Body.String(), convey.ShouldContainSubstring, "Eatery API Docs")
				convey.So(w.Body.String(), convey.ShouldContainSubstring, `src="`+DefaultScriptURL+`"`)
			})

			convey.Convey("And no local bundle is served", func() {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest("GET", BundlePath, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusNotFound)
			})
		})

		convey.Convey("When the script points at a mirror", func() {
			Register(ctx, mux, WithScriptURL("https://docs.internal/redoc.js?v=2&min=1"))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest("GET", "/api-docs", http.NoBody))

			convey.Convey("Then the page loads it from there", func() {
				convey.So(w.Body.String(), convey.ShouldContainSubstring, `src="https://docs.internal/redoc.js?v=2&amp;min=1"`)
				convey.So(w.Body.String(), convey.ShouldNotContainSubstring, DefaultScriptURL)
			})
		})

		convey.Convey("When an empty script url is given", func() {
			Register(ctx, mux, WithScriptURL(""))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest("GET", "/api-docs", http.NoBody))
			convey.So(w.Body.String(), convey.ShouldContainSubstring, DefaultScriptURL)
		})

		convey.Convey("When a local bundle is supplied", func() {
			bundle := []byte("/* local redoc build */")
			Register(ctx, mux, WithScriptURL("https://docs.internal/redoc.js"), WithBundle(bundle))

			convey.Convey("Then the page needs no outside host", func() {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest("GET", "/api-docs", http.NoBody))
				convey.So(w.Body.String(), convey.ShouldContainSubstring, `src="`+BundlePath+`"`)
				convey.So(w.Body.String(), convey.ShouldNotContainSubstring, "https://")
			})

			convey.Convey("And the bundle is served as sent", func() {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest("GET", BundlePath, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Header().Get("Content-Type"), convey.ShouldEqual, "application/javascript; charset=utf-8")
				convey.So(w.Body.Bytes(), convey.ShouldResemble, bundle)
			})
		})

		convey.Convey("When registering on a nil mux", func() {
			convey.So(func() { Register(ctx, nil) }, convey.ShouldPanic)
		})
	})
}

func TestOpenAPIDocument(t *testing.T) {
	convey.Convey("Given the embedded OpenAPI document", t, func() {
		doc, err := yaml.Parser().Unmarshal(OpenAPI)

		convey.Convey("Then it parses", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(doc["openapi"], convey.ShouldEqual, "3.0.3")
		})

		convey.Convey("Then it documents every API route", func() {
			paths, ok := doc["paths"].(map[string]interface{})
			convey.So(ok, convey.ShouldBeTrue)
			for _, p := range []string{
				"/api/rest/create/rest", "/api/rest/insert/rests", "/api/rest/get/all",
				"/api/rest/get/search", "/api/rest/get/search1km/{id}", "/api/rest/get/{key}",
				"/api/rest/update/{id}", "/api/rest/del/{id}", "/api/rest/del/all",
				"/api/user/create/user", "/api/user/insert/users", "/api/user/get/all",
				"/api/user/get/search", "/api/user/get/search/{cuisine}", "/api/user/get/{id}",
				"/api/user/update/{id}", "/api/user/del/{id}", "/api/user/del/all",
				"/healthz", "/stats",
			} {
				convey.So(paths, convey.ShouldContainKey, p)
			}
		})
	})
}
