package swagger

import (
	"context"
	"html"
	"net/http"
	"strings"
)

// DefaultScriptURL is the ReDoc bundle the docs page loads when no other
// source is configured.
const DefaultScriptURL = "https://cdn.redoc.ly/redoc/v2.1.5/bundles/redoc.standalone.js"

// BundlePath is where a locally supplied ReDoc bundle is served.
const BundlePath = "/api-docs/redoc.standalone.js"

type docs struct {
	scriptURL string
	bundle    []byte
}

// Option configures the docs routes.
type Option func(*docs)

// WithScriptURL points the docs page at another ReDoc bundle, e.g. a mirror
// inside the network. An empty url keeps the default.
func WithScriptURL(url string) Option {
	return func(d *docs) {
		if url != "" {
			d.scriptURL = url
		}
	}
}

// WithBundle serves bundle at BundlePath and points the docs page at it, so
// /api-docs works without outbound network access. Takes precedence over
// WithScriptURL.
func WithBundle(bundle []byte) Option {
	return func(d *docs) {
		d.bundle = bundle
	}
}

// Register attaches the API docs routes to mux.
//
//	GET /api-docs                       -> ReDoc HTML
//	GET /openapi.yaml                   -> embedded OpenAPI document
//	GET /api-docs/redoc.standalone.js   -> ReDoc bundle, with WithBundle only
func Register(_ context.Context, mux *http.ServeMux, opts ...Option) {
	if mux == nil {
		panic("mux is nil")
	}
	d := &docs{scriptURL: DefaultScriptURL}
	for _, opt := range opts {
		opt(d)
	}
	if len(d.bundle) > 0 {
		d.scriptURL = BundlePath
		mux.HandleFunc("GET "+BundlePath, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
			_, _ = w.Write(d.bundle)
		})
	}
	page := strings.Replace(indexHTML, "{{script}}", html.EscapeString(d.scriptURL), 1)

	mux.HandleFunc("GET /api-docs", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	})

	mux.HandleFunc("GET /openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		_, _ = w.Write(OpenAPI)
	})
}

const indexHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>Eatery API Docs</title>
    <style>body{margin:0;padding:0}</style>
  </head>
  <body>
    <redoc id="redoc-container"></redoc>
    <script src="{{script}}"></script>
    <script>Redoc.init('/openapi.yaml', { suppressWarnings: true }, document.getElementById('redoc-container'));</script>
  </body>
</html>`
