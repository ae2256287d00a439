package api

import (
	"context"
	"net/http"

	service "github.com/okian/eatery/internal/app"
	"github.com/okian/eatery/internal/domain/filter"
	"github.com/okian/eatery/internal/domain/model"
)

// RestaurantDependencies defines the restaurant operations used by the handlers.
type RestaurantDependencies interface {
	CreateRestaurant(ctx context.Context, r model.Restaurant) (*model.Restaurant, error)
	InsertRestaurants(ctx context.Context, rs []model.Restaurant) ([]model.Restaurant, error)
	RestaurantByKey(ctx context.Context, key string) (*model.Restaurant, error)
	SearchRestaurants(ctx context.Context, f filter.Restaurant) ([]model.Restaurant, error)
	AllRestaurants(ctx context.Context) ([]model.Restaurant, error)
	NearbyRestaurants(ctx context.Context, id string) (service.NearbyResult, error)
	UpdateRestaurant(ctx context.Context, id string, u service.RestaurantUpdate) (*model.Restaurant, error)
	DeleteRestaurant(ctx context.Context, id string) (*model.Restaurant, error)
	DeleteAllRestaurants(ctx context.Context) (model.DeleteResult, error)
}

// restaurantRequest is the create body. long/lat become a GeoJSON point.
type restaurantRequest struct {
	RestName string   `json:"restName"`
	Cuisine  string   `json:"cuisine"`
	Long     *float64 `json:"long"`
	Lat      *float64 `json:"lat"`
}

func (b restaurantRequest) toModel() model.Restaurant {
	r := model.Restaurant{RestName: b.RestName, Cuisine: b.Cuisine}
	if b.Long != nil && b.Lat != nil {
		r.Location = model.NewPoint(*b.Long, *b.Lat)
	}
	return r
}

type restaurantBatchRequest struct {
	Data []restaurantRequest `json:"data"`
}

type restaurantUpdateRequest struct {
	RestName *string  `json:"restName"`
	Cuisine  *string  `json:"cuisine"`
	Long     *float64 `json:"long"`
	Lat      *float64 `json:"lat"`
}

type restaurantsResponse struct {
	Restaurants []model.Restaurant `json:"restaurants"`
	Count       int                `json:"count"`
}

type restaurantResponse struct {
	Restaurants *model.Restaurant `json:"restaurants"`
	Count       int               `json:"count"`
}

type restaurantUpdatedResponse struct {
	Restaurants *model.Restaurant `json:"restaurants"`
}

type nearbyResponse struct {
	Restaurants  []model.Restaurant `json:"restaurants"`
	Count        int                `json:"count"`
	RadiusMeters float64            `json:"radiusMeters"`
}

// RestaurantHandler handles the /api/rest routes.
type RestaurantHandler struct {
	deps RestaurantDependencies
}

// NewRestaurantHandler creates a new restaurant handler.
func NewRestaurantHandler(deps RestaurantDependencies) *RestaurantHandler {
	return &RestaurantHandler{deps: deps}
}

// HandleCreate handles POST /api/rest/create/rest.
func (h *RestaurantHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_restaurant"
	var req restaurantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	created, err := h.deps.CreateRestaurant(r.Context(), req.toModel())
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, dataResponse{Data: created})
}

// HandleInsertMany handles POST /api/rest/insert/rests.
func (h *RestaurantHandler) HandleInsertMany(w http.ResponseWriter, r *http.Request) {
	const op = "api.insert_restaurants"
	var req restaurantBatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	items := make([]model.Restaurant, len(req.Data))
	for i, item := range req.Data {
		items[i] = item.toModel()
	}
	out, err := h.deps.InsertRestaurants(r.Context(), items)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, restaurantsResponse{Restaurants: out, Count: len(out)})
}

// HandleGet handles GET /api/rest/get/{key}: slug first, then id.
func (h *RestaurantHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_restaurant"
	found, err := h.deps.RestaurantByKey(r.Context(), r.PathValue("key"))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	resp := restaurantResponse{Restaurants: found}
	if found != nil {
		resp.Count = 1
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleSearch handles GET /api/rest/get/search.
func (h *RestaurantHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	const op = "api.search_restaurants"
	f, err := filter.ParseRestaurant(r.URL.Query())
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	h.writeList(r.Context(), w, op, func(ctx context.Context) ([]model.Restaurant, error) {
		return h.deps.SearchRestaurants(ctx, f)
	})
}

// HandleGetAll handles GET /api/rest/get/all.
func (h *RestaurantHandler) HandleGetAll(w http.ResponseWriter, r *http.Request) {
	h.writeList(r.Context(), w, "api.get_all_restaurants", h.deps.AllRestaurants)
}

func (h *RestaurantHandler) writeList(ctx context.Context, w http.ResponseWriter, op string, list func(context.Context) ([]model.Restaurant, error)) {
	out, err := list(ctx)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, restaurantsResponse{Restaurants: out, Count: len(out)})
}

// HandleNearby handles GET /api/rest/get/search1km/{id}.
func (h *RestaurantHandler) HandleNearby(w http.ResponseWriter, r *http.Request) {
	const op = "api.nearby_restaurants"
	res, err := h.deps.NearbyRestaurants(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, nearbyResponse{
		Restaurants:  res.Restaurants,
		Count:        len(res.Restaurants),
		RadiusMeters: res.RadiusMeters,
	})
}

// HandleUpdate handles PUT /api/rest/update/{id}.
func (h *RestaurantHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_restaurant"
	var req restaurantUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	updated, err := h.deps.UpdateRestaurant(r.Context(), r.PathValue("id"), service.RestaurantUpdate{
		RestName: req.RestName,
		Cuisine:  req.Cuisine,
		Long:     req.Long,
		Lat:      req.Lat,
	})
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, restaurantUpdatedResponse{Restaurants: updated})
}

// HandleDelete handles DELETE /api/rest/del/{id}.
func (h *RestaurantHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_restaurant"
	deleted, err := h.deps.DeleteRestaurant(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: deleted})
}

// HandleDeleteAll handles DELETE /api/rest/del/all.
func (h *RestaurantHandler) HandleDeleteAll(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_all_restaurants"
	res, err := h.deps.DeleteAllRestaurants(r.Context())
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: res})
}
