// Package catalog holds the CRUD services for categories and ingredients.
package catalog

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/talkincode/cookbook/internal/domain"
	"github.com/talkincode/cookbook/internal/repository"
	"github.com/talkincode/cookbook/pkg/common"
	"go.uber.org/zap"
)

type options struct {
	deleteLock sync.Locker
}

type Option func(*options)

// WithDeleteLock makes deletes hold l across their in-use check and the
// delete itself. Pass the recipe engine's CatalogLock so a recipe cannot be
// stored against an entry that is being removed.
func WithDeleteLock(l sync.Locker) Option {
	return func(o *options) { o.deleteLock = l }
}

func buildOptions(opts []Option) options {
	o := options{deleteLock: &sync.Mutex{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// CategoryService manages the category directory.
type CategoryService struct {
	categories repository.CategoryRepository
	recipes    repository.RecipeRepository
	deleteLock sync.Locker
	now        func() time.Time
	newID      func() string
}

func NewCategoryService(categories repository.CategoryRepository, recipes repository.RecipeRepository, opts ...Option) *CategoryService {
	o := buildOptions(opts)
	return &CategoryService{
		categories: categories,
		recipes:    recipes,
		deleteLock: o.deleteLock,
		now:        time.Now,
		newID:      common.NewID,
	}
}

func (s *CategoryService) List(ctx context.Context) ([]*domain.Category, error) {
	return s.categories.List(ctx)
}

func (s *CategoryService) Get(ctx context.Context, id string) (*domain.Category, error) {
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, domain.MsgCategoryNotFound)
	}
	return category, nil
}

func (s *CategoryService) Create(ctx context.Context, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Validation(domain.MsgNameRequired)
	}
	category := &domain.Category{ID: s.newID(), Name: name, CreatedAt: s.now()}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}
	zap.L().Info("category created",
		zap.String("namespace", "catalog"),
		zap.String("id", category.ID),
		zap.String("name", category.Name))
	return category, nil
}

func (s *CategoryService) Update(ctx context.Context, id, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Validation(domain.MsgNameRequired)
	}
	category, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	category.Name = name
	if err := s.categories.Update(ctx, category); err != nil {
		return nil, mapNotFound(err, domain.MsgCategoryNotFound)
	}
	return category, nil
}

// Delete refuses to remove a category that recipes still reference.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	s.deleteLock.Lock()
	defer s.deleteLock.Unlock()

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	used, err := s.recipes.ListByCategoryID(ctx, id)
	if err != nil {
		return err
	}
	if len(used) > 0 {
		return domain.Conflict(domain.MsgCategoryHasRecipes)
	}
	if err := s.categories.Delete(ctx, id); err != nil {
		return mapNotFound(err, domain.MsgCategoryNotFound)
	}
	zap.L().Info("category deleted", zap.String("namespace", "catalog"), zap.String("id", id))
	return nil
}

// EnsureCategory creates name unless a category with the same normalized name exists.
func (s *CategoryService) EnsureCategory(ctx context.Context, name string) (*domain.Category, bool, error) {
	existing, err := s.categories.FindByName(ctx, name)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrRecordNotFound) {
		return nil, false, err
	}
	created, err := s.Create(ctx, name)
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

// IngredientService manages the ingredient catalog outside of recipe resolution.
type IngredientService struct {
	ingredients repository.IngredientRepository
	recipes     repository.RecipeRepository
	deleteLock  sync.Locker
	now         func() time.Time
	newID       func() string
}

func NewIngredientService(ingredients repository.IngredientRepository, recipes repository.RecipeRepository, opts ...Option) *IngredientService {
	o := buildOptions(opts)
	return &IngredientService{
		ingredients: ingredients,
		recipes:     recipes,
		deleteLock:  o.deleteLock,
		now:         time.Now,
		newID:       common.NewID,
	}
}

func (s *IngredientService) List(ctx context.Context) ([]*domain.Ingredient, error) {
	return s.ingredients.List(ctx)
}

func (s *IngredientService) Get(ctx context.Context, id string) (*domain.Ingredient, error) {
	ingredient, err := s.ingredients.FindByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, domain.MsgIngredientNotFound)
	}
	return ingredient, nil
}

func (s *IngredientService) Create(ctx context.Context, name string) (*domain.Ingredient, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Validation(domain.MsgNameRequired)
	}
	ingredient := &domain.Ingredient{ID: s.newID(), Name: name, CreatedAt: s.now()}
	if err := s.ingredients.Create(ctx, ingredient); err != nil {
		return nil, err
	}
	return ingredient, nil
}

func (s *IngredientService) Update(ctx context.Context, id, name string) (*domain.Ingredient, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Validation(domain.MsgNameRequired)
	}
	ingredient, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ingredient.Name = name
	if err := s.ingredients.Update(ctx, ingredient); err != nil {
		return nil, mapNotFound(err, domain.MsgIngredientNotFound)
	}
	return ingredient, nil
}

// Delete refuses to remove an ingredient that any recipe line references.
func (s *IngredientService) Delete(ctx context.Context, id string) error {
	s.deleteLock.Lock()
	defer s.deleteLock.Unlock()

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	recipes, err := s.recipes.List(ctx)
	if err != nil {
		return err
	}
	for _, recipe := range recipes {
		if recipe.UsesIngredient(id) {
			return domain.Conflict(domain.MsgIngredientInUse)
		}
	}
	if err := s.ingredients.Delete(ctx, id); err != nil {
		return mapNotFound(err, domain.MsgIngredientNotFound)
	}
	zap.L().Info("ingredient deleted", zap.String("namespace", "catalog"), zap.String("id", id))
	return nil
}

func mapNotFound(err error, msg string) error {
	if errors.Is(err, domain.ErrRecordNotFound) {
		return domain.NotFound(msg)
	}
	return err
}
