// Package recipes is the recipe lifecycle and aggregation engine. It resolves
// ingredient names against the catalog, enforces the draft/published/archived
// permission rules, scales portions and merges shopping lists.
package recipes

import (
	"context"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"github.com/talkincode/cookbook/internal/domain"
	"github.com/talkincode/cookbook/internal/repository"
	"github.com/talkincode/cookbook/pkg/common"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const defaultWorkers = 8

type Service struct {
	recipes     repository.RecipeRepository
	categories  repository.CategoryRepository
	ingredients repository.IngredientRepository

	bus       EventBus.Bus
	locks     *keyedMutex
	catalogMu sync.RWMutex // held shared while a recipe's references are checked and stored
	resolving singleflight.Group
	pool      *ants.Pool
	workers   int

	now   func() time.Time
	newID func() string
}

type Option func(*Service)

// WithEventBus publishes lifecycle events on bus.
func WithEventBus(bus EventBus.Bus) Option {
	return func(s *Service) { s.bus = bus }
}

// WithWorkers sizes the pool used to resolve shopping list names.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func NewService(
	recipes repository.RecipeRepository,
	categories repository.CategoryRepository,
	ingredients repository.IngredientRepository,
	opts ...Option,
) (*Service, error) {
	s := &Service{
		recipes:     recipes,
		categories:  categories,
		ingredients: ingredients,
		locks:       newKeyedMutex(),
		workers:     defaultWorkers,
		now:         time.Now,
		newID:       common.NewID,
	}
	for _, opt := range opts {
		opt(s)
	}
	pool, err := ants.NewPool(s.workers)
	if err != nil {
		return nil, errors.Wrap(err, "create worker pool")
	}
	s.pool = pool
	return s, nil
}

// CatalogLock returns the exclusive side of the lock that create and update
// hold while they check categories, resolve ingredients and store the recipe.
// Catalog deletes take it so their in-use checks cannot interleave with a write.
func (s *Service) CatalogLock() sync.Locker {
	return &s.catalogMu
}

// Close releases the worker pool.
func (s *Service) Close() {
	if s.pool != nil {
		s.pool.Release()
	}
}

func (s *Service) publish(topic string, recipe *domain.Recipe) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(topic, recipe.Clone())
}

// findRecipe loads a recipe, turning a repository miss into "recipe not found".
func (s *Service) findRecipe(ctx context.Context, id string) (*domain.Recipe, error) {
	recipe, err := s.recipes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, domain.NotFound(domain.MsgRecipeNotFound)
		}
		return nil, err
	}
	return recipe, nil
}

func (s *Service) checkCategory(ctx context.Context, id string) error {
	if _, err := s.categories.FindByID(ctx, id); err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return domain.NotFound(domain.MsgCategoryNotExist)
		}
		return err
	}
	return nil
}

func logRecipe(msg string, recipe *domain.Recipe) {
	zap.L().Info(msg,
		zap.String("namespace", "recipe"),
		zap.String("id", recipe.ID),
		zap.String("status", string(recipe.Status)))
}
