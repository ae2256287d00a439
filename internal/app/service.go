// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/okian/eatery/internal/adapters/repository"
	"github.com/okian/eatery/internal/domain/schema"
	"github.com/okian/eatery/pkg/logger"
	"github.com/okian/eatery/pkg/metrics"
)

// ReferencePolicy decides what deleting a managed restaurant does to users.
type ReferencePolicy string

const (
	// PolicyCascade pulls deleted restaurant ids out of every managedRests list.
	PolicyCascade ReferencePolicy = "cascade"
	// PolicyReject refuses to delete a restaurant that any user manages.
	PolicyReject ReferencePolicy = "reject"
)

// DefaultNearbyRadiusMeters is the radius of the nearby query.
const DefaultNearbyRadiusMeters = 1000.0

// Service implements the API dependencies for the restaurant catalogue.
type Service struct {
	mu sync.RWMutex

	store      repository.Store
	validator  *schema.Validator
	normalizer *schema.Normalizer

	// Configuration
	storeDriver  string
	nearbyRadius float64
	policy       ReferencePolicy

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the backing store. Without it Start uses a MemoryStore.
func WithStore(store repository.Store, driver string) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
			s.storeDriver = driver
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithNearbyRadius sets the nearby query radius in metres.
func WithNearbyRadius(meters float64) Option {
	return func(s *Service) {
		if meters > 0 {
			s.nearbyRadius = meters
		}
	}
}

// WithReferencePolicy sets how restaurant deletes treat managing users.
func WithReferencePolicy(policy ReferencePolicy) Option {
	return func(s *Service) {
		switch policy {
		case PolicyCascade, PolicyReject:
			s.policy = policy
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		validator:    schema.NewValidator(),
		normalizer:   schema.NewNormalizer(),
		nearbyRadius: DefaultNearbyRadiusMeters,
		policy:       PolicyCascade,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start prepares the store and marks the service ready.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.storeDriver = "memory"
	}

	s.logger.Info(ctx, "starting catalogue service...")
	if err := s.store.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	s.started = true
	s.logger.Info(ctx, "catalogue service started",
		logger.String("storeDriver", s.storeDriver),
		logger.Float64("nearbyRadiusMeters", s.nearbyRadius),
		logger.String("referencePolicy", string(s.policy)),
	)
	return nil
}

// Stop closes the store.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(ctx, "stopping catalogue service...")
	if err := s.store.Close(ctx); err != nil {
		s.logger.Warn(ctx, "closing store", logger.Error(err))
	}
	s.started = false
	s.logger.Info(ctx, "catalogue service stopped")
}

// ready returns the store once Start has run.
func (s *Service) ready() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// Stats is the /stats payload.
type Stats struct {
	Started         bool   `json:"started"`
	Restaurants     int64  `json:"restaurants"`
	Users           int64  `json:"users"`
	StoreDriver     string `json:"storeDriver"`
	ReferencePolicy string `json:"referencePolicy"`
}

// GetStats counts both collections and refreshes the size gauges.
func (s *Service) GetStats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	stats := Stats{
		Started:         s.started,
		StoreDriver:     s.storeDriver,
		ReferencePolicy: string(s.policy),
	}
	s.mu.RUnlock()

	store, err := s.ready()
	if err != nil {
		return stats, nil
	}
	if stats.Restaurants, err = store.CountRestaurants(ctx); err != nil {
		return stats, err
	}
	if stats.Users, err = store.CountUsers(ctx); err != nil {
		return stats, err
	}
	metrics.UpdateRestaurantsTotal(stats.Restaurants)
	metrics.UpdateUsersTotal(stats.Users)
	return stats, nil
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	store, err := s.ready()
	if err != nil {
		return err
	}
	return store.Ping(ctx)
}

func parseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, hex)
	}
	return id, nil
}
