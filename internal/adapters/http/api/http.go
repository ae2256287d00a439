// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/okian/eatery/internal/domain/schema"
)

// maxBodyBytes bounds request bodies, bulk inserts included.
const maxBodyBytes = 8 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	RestaurantDependencies
	UserDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	restaurantHandler *RestaurantHandler
	userHandler       *UserHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		restaurantHandler: NewRestaurantHandler(deps),
		userHandler:       NewUserHandler(deps),
	}
}

// Register attaches all HTTP routes to mux. Fixed segments win over
// wildcards, so "get/all" and "get/search" shadow "get/{key}".
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	rh := s.restaurantHandler
	mux.HandleFunc("POST /api/rest/create/rest", MetricsMiddleware(rh.HandleCreate, "rest_create"))
	mux.HandleFunc("POST /api/rest/insert/rests", MetricsMiddleware(rh.HandleInsertMany, "rest_insert"))
	mux.HandleFunc("GET /api/rest/get/all", MetricsMiddleware(rh.HandleGetAll, "rest_get_all"))
	mux.HandleFunc("DELETE /api/rest/del/all", MetricsMiddleware(rh.HandleDeleteAll, "rest_del_all"))
	mux.HandleFunc("DELETE /api/rest/del/{id}", MetricsMiddleware(rh.HandleDelete, "rest_del"))
	mux.HandleFunc("GET /api/rest/get/search", MetricsMiddleware(rh.HandleSearch, "rest_search"))
	mux.HandleFunc("GET /api/rest/get/search1km/{id}", MetricsMiddleware(rh.HandleNearby, "rest_nearby"))
	mux.HandleFunc("GET /api/rest/get/{key}", MetricsMiddleware(rh.HandleGet, "rest_get"))
	mux.HandleFunc("PUT /api/rest/update/{id}", MetricsMiddleware(rh.HandleUpdate, "rest_update"))

	uh := s.userHandler
	mux.HandleFunc("POST /api/user/create/user", MetricsMiddleware(uh.HandleCreate, "user_create"))
	mux.HandleFunc("POST /api/user/insert/users", MetricsMiddleware(uh.HandleInsertMany, "user_insert"))
	mux.HandleFunc("DELETE /api/user/del/all", MetricsMiddleware(uh.HandleDeleteAll, "user_del_all"))
	mux.HandleFunc("DELETE /api/user/del/{id}", MetricsMiddleware(uh.HandleDelete, "user_del"))
	mux.HandleFunc("GET /api/user/get/all", MetricsMiddleware(uh.HandleGetAll, "user_get_all"))
	mux.HandleFunc("GET /api/user/get/search/{cuisine}", MetricsMiddleware(uh.HandleCuisine, "user_cuisine"))
	mux.HandleFunc("GET /api/user/get/search", MetricsMiddleware(uh.HandleSearch, "user_search"))
	mux.HandleFunc("GET /api/user/get/{id}", MetricsMiddleware(uh.HandleGet, "user_get"))
	mux.HandleFunc("PUT /api/user/update/{id}", MetricsMiddleware(uh.HandleUpdate, "user_update"))

	// Everything else, including a known path under another method.
	mux.HandleFunc("/", MetricsMiddleware(handleNotFound, "not_found"))
}

func handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, messageResponse{Message: "not found"})
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorDetail struct {
	Kind   string              `json:"kind"`
	Op     string              `json:"op,omitempty"`
	Fields []schema.FieldError `json:"fields,omitempty"`
}

type errorResponse struct {
	Message string      `json:"message"`
	Error   errorDetail `json:"error"`
}

// dataResponse is the create/delete envelope.
type dataResponse struct {
	Data any `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError reports every failure as a 500 carrying its kind.
func writeError(w http.ResponseWriter, err error) {
	detail := errorDetail{Kind: kindOf(err), Op: opOf(err)}
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		detail.Fields = verr.Fields
	}
	writeJSON(w, http.StatusInternalServerError, errorResponse{Message: err.Error(), Error: detail})
}

// decodeJSON reads exactly one JSON value into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("body must contain a single JSON value")
	}
	return nil
}
