package api

import (
	"context"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	service "github.com/okian/eatery/internal/app"
	"github.com/okian/eatery/internal/domain/filter"
	"github.com/okian/eatery/internal/domain/model"
)

// UserDependencies defines the user operations used by the handlers.
type UserDependencies interface {
	CreateUser(ctx context.Context, u model.User) (*model.User, error)
	InsertUsers(ctx context.Context, us []model.User) ([]model.User, error)
	UserByID(ctx context.Context, id string) (*model.User, error)
	SearchUsers(ctx context.Context, f filter.User) ([]model.User, error)
	AllUsers(ctx context.Context) ([]model.PopulatedUser, error)
	CuisineManagers(ctx context.Context, cuisine string) ([]model.CuisineManager, error)
	UpdateUser(ctx context.Context, id string, u service.UserUpdate) (*model.User, error)
	DeleteUser(ctx context.Context, id string) (*model.User, error)
	DeleteAllUsers(ctx context.Context) (model.DeleteResult, error)
}

// userRequest is the create body; managedRests are ObjectID hex strings.
type userRequest struct {
	FullName     model.FullName       `json:"fullName"`
	FavCuisines  []string             `json:"favCuisines"`
	ManagedRests []primitive.ObjectID `json:"managedRests"`
}

func (b userRequest) toModel() model.User {
	return model.User{FullName: b.FullName, FavCuisines: b.FavCuisines, ManagedRests: b.ManagedRests}
}

type userBatchRequest struct {
	Data []userRequest `json:"data"`
}

type userUpdateRequest struct {
	FullName *struct {
		FirstName *string `json:"firstName"`
		LastName  *string `json:"lastName"`
	} `json:"fullName"`
	FavCuisines  *[]string             `json:"favCuisines"`
	ManagedRests *[]primitive.ObjectID `json:"managedRests"`
}

func (b userUpdateRequest) toUpdate() service.UserUpdate {
	u := service.UserUpdate{FavCuisines: b.FavCuisines, ManagedRests: b.ManagedRests}
	if b.FullName != nil {
		u.FirstName, u.LastName = b.FullName.FirstName, b.FullName.LastName
	}
	return u
}

type usersResponse[T any] struct {
	Users []T `json:"users"`
	Count int `json:"count"`
}

type userResponse struct {
	Users *model.User `json:"users"`
	Count int         `json:"count"`
}

type userUpdatedResponse struct {
	Users *model.User `json:"users"`
}

// UserHandler handles the /api/user routes.
type UserHandler struct {
	deps UserDependencies
}

// NewUserHandler creates a new user handler.
func NewUserHandler(deps UserDependencies) *UserHandler {
	return &UserHandler{deps: deps}
}

// HandleCreate handles POST /api/user/create/user.
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_user"
	var req userRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	created, err := h.deps.CreateUser(r.Context(), req.toModel())
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, dataResponse{Data: created})
}

// HandleInsertMany handles POST /api/user/insert/users.
func (h *UserHandler) HandleInsertMany(w http.ResponseWriter, r *http.Request) {
	const op = "api.insert_users"
	var req userBatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	items := make([]model.User, len(req.Data))
	for i, item := range req.Data {
		items[i] = item.toModel()
	}
	out, err := h.deps.InsertUsers(r.Context(), items)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, usersResponse[model.User]{Users: out, Count: len(out)})
}

// HandleGet handles GET /api/user/get/{id}.
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_user"
	found, err := h.deps.UserByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	resp := userResponse{Users: found}
	if found != nil {
		resp.Count = 1
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleSearch handles GET /api/user/get/search.
func (h *UserHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	const op = "api.search_users"
	f, err := filter.ParseUser(r.URL.Query())
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	out, err := h.deps.SearchUsers(r.Context(), f)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, usersResponse[model.User]{Users: out, Count: len(out)})
}

// HandleGetAll handles GET /api/user/get/all.
func (h *UserHandler) HandleGetAll(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_all_users"
	out, err := h.deps.AllUsers(r.Context())
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, usersResponse[model.PopulatedUser]{Users: out, Count: len(out)})
}

// HandleCuisine handles GET /api/user/get/search/{cuisine}.
func (h *UserHandler) HandleCuisine(w http.ResponseWriter, r *http.Request) {
	const op = "api.cuisine_managers"
	out, err := h.deps.CuisineManagers(r.Context(), r.PathValue("cuisine"))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, usersResponse[model.CuisineManager]{Users: out, Count: len(out)})
}

// HandleUpdate handles PUT /api/user/update/{id}.
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_user"
	var req userUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	updated, err := h.deps.UpdateUser(r.Context(), r.PathValue("id"), req.toUpdate())
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, userUpdatedResponse{Users: updated})
}

// HandleDelete handles DELETE /api/user/del/{id}.
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_user"
	deleted, err := h.deps.DeleteUser(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: deleted})
}

// HandleDeleteAll handles DELETE /api/user/del/all.
func (h *UserHandler) HandleDeleteAll(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_all_users"
	res, err := h.deps.DeleteAllUsers(r.Context())
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: res})
}
