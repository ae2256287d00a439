package service

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/okian/eatery/internal/adapters/repository"
	"github.com/okian/eatery/internal/domain/filter"
	"github.com/okian/eatery/internal/domain/model"
	"github.com/okian/eatery/internal/domain/schema"
	"github.com/okian/eatery/pkg/logger"
	"github.com/okian/eatery/pkg/metrics"
)

// UserUpdate lists the fields of a partial user update. Name parts merge
// individually into the stored fullName.
type UserUpdate struct {
	FirstName    *string
	LastName     *string
	FavCuisines  *[]string
	ManagedRests *[]primitive.ObjectID
}

func (s *Service) prepareUser(u *model.User) error {
	s.normalizer.User(u)
	return s.validator.Struct(u)
}

// checkReferences fails when any of ids is not a stored restaurant.
func (s *Service) checkReferences(ctx context.Context, store repository.Store, ids []primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	n, err := store.CountRestaurantsByID(ctx, ids)
	if err != nil {
		return err
	}
	if n != int64(len(ids)) {
		return fmt.Errorf("%w: %d of %d managedRests are unknown", ErrUnknownReference, int64(len(ids))-n, len(ids))
	}
	return nil
}

// CreateUser validates and stores a new user.
func (s *Service) CreateUser(ctx context.Context, u model.User) (*model.User, error) {
	store, err := s.ready()
	if err != nil {
		return nil, err
	}
	doc := u.Clone()
	doc.ID = primitive.NilObjectID
	if err := s.prepareUser(doc); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, store, doc.ManagedRests); err != nil {
		return nil, err
	}
	created, err := store.InsertUser(ctx, doc)
	if err != nil {
		return nil, err
	}
	metrics.RecordUsersCreated(1)
	s.logger.Debug(ctx, "user created", logger.String("id", created.ID.Hex()))
	return created, nil
}

// InsertUsers validates the whole batch before writing any of it.
func (s *Service) InsertUsers(ctx context.Context, us []model.User) ([]model.User, error) {
	store, err := s.ready()
	if err != nil {
		return nil, err
	}
	docs := make([]*model.User, len(us))
	var refs []primitive.ObjectID
	for i := range us {
		doc := us[i].Clone()
		doc.ID = primitive.NilObjectID
		if err := s.prepareUser(doc); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		refs = append(refs, doc.ManagedRests...)
		docs[i] = doc
	}
	if err := s.checkReferences(ctx, store, schema.UniqueIDs(refs)); err != nil {
		return nil, err
	}

	out, err := store.InsertUsers(ctx, docs)
	if err != nil {
		return nil, err
	}
	metrics.RecordUsersCreated(len(out))
	s.logger.Info(ctx, "users inserted", logger.Int("count", len(out)))
	return out, nil
}

// UserByID returns nil without error when no user has the id.
func (s *Service) UserByID(ctx context.Context, hex string) (*model.User, error) {
	store, err := s.ready()
	if err != nil {
		return nil, err
	}
	id, err := parseID(hex)
	if err != nil {
		return nil, err
	}
	return missingAsNil(store.UserByID(ctx, id))
}

// SearchUsers returns users matching f.
func (s *Service) SearchUsers(ctx context.Context, f filter.User) ([]model.User, error) {
	store, err := s.ready()
	if err != nil {
		return nil, err
	}
	return store.FindUsers(ctx, f)
}

// AllUsers returns every user with managedRests resolved to restaurants.
func (s *Service) AllUsers(ctx context.Context) ([]model.PopulatedUser, error) {
	store, err := s.ready()
	if err != nil {
		return nil, err
	}
	return store.PopulatedUsers(ctx)
}

// CuisineManagers returns users who like cuisine and manage at least one
// restaurant serving it.
func (s *Service) CuisineManagers(ctx context.Context, cuisine string) ([]model.CuisineManager, error) {
	store, err := s.ready()
	if err != nil {
		return nil, err
	}
	c := strings.ToLower(strings.TrimSpace(cuisine))
	if c == "" {
		return nil, fmt.Errorf("%w: cuisine must not be empty", ErrBadRequest)
	}
	return store.CuisineManagers(ctx, c)
}

// UpdateUser merges u into the stored user, validates the result and writes
// only the supplied fields.
func (s *Service) UpdateUser(ctx context.Context, hex string, u UserUpdate) (*model.User, error) {
	store, err := s.ready()
	if err != nil {
		return nil, err
	}
	id, err := parseID(hex)
	if err != nil {
		return nil, err
	}
	current, err := store.UserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var patch model.UserPatch
	if u.FirstName != nil || u.LastName != nil {
		name := current.FullName
		if u.FirstName != nil {
			name.FirstName = *u.FirstName
		}
		if u.LastName != nil {
			name.LastName = *u.LastName
		}
		s.normalizer.FullName(&name)
		patch.FullName = &name
	}
	if u.FavCuisines != nil {
		cuisines := s.normalizer.Cuisines(*u.FavCuisines)
		patch.FavCuisines = &cuisines
	}
	if u.ManagedRests != nil {
		ids := schema.UniqueIDs(*u.ManagedRests)
		if err := s.checkReferences(ctx, store, ids); err != nil {
			return nil, err
		}
		patch.ManagedRests = &ids
	}
	if err := s.validator.Struct(patch.Apply(current)); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return current, nil
	}
	return store.UpdateUser(ctx, id, patch)
}

// DeleteUser returns nil without error when the id is unknown.
func (s *Service) DeleteUser(ctx context.Context, hex string) (*model.User, error) {
	store, err := s.ready()
	if err != nil {
		return nil, err
	}
	id, err := parseID(hex)
	if err != nil {
		return nil, err
	}
	return missingAsNil(store.DeleteUser(ctx, id))
}

// DeleteAllUsers empties the users collection.
func (s *Service) DeleteAllUsers(ctx context.Context) (model.DeleteResult, error) {
	store, err := s.ready()
	if err != nil {
		return model.DeleteResult{}, err
	}
	n, err := store.DeleteUsers(ctx)
	if err != nil {
		return model.DeleteResult{}, err
	}
	s.logger.Info(ctx, "users deleted", logger.Int64("count", n))
	return model.DeleteResult{DeletedCount: n}, nil
}
