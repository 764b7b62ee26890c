package repository

import (
	"context"
	"strings"

	"github.com/talkincode/cookbook/internal/domain"
	"golang.org/x/text/cases"
)

// CategoryRepository is the category directory. Lookups that miss return
// domain.ErrRecordNotFound.
type CategoryRepository interface {
	// List returns every category ordered by name
	List(ctx context.Context) ([]*domain.Category, error)

	FindByID(ctx context.Context, id string) (*domain.Category, error)

	// FindByName matches case-insensitively on the trimmed name
	FindByName(ctx context.Context, name string) (*domain.Category, error)

	// Create fails with a conflict error when the normalized name is taken
	Create(ctx context.Context, category *domain.Category) error

	Update(ctx context.Context, category *domain.Category) error

	Delete(ctx context.Context, id string) error
}

// IngredientRepository is the ingredient catalog.
type IngredientRepository interface {
	List(ctx context.Context) ([]*domain.Ingredient, error)
	FindByID(ctx context.Context, id string) (*domain.Ingredient, error)
	FindByName(ctx context.Context, name string) (*domain.Ingredient, error)
	Create(ctx context.Context, ingredient *domain.Ingredient) error
	Update(ctx context.Context, ingredient *domain.Ingredient) error
	Delete(ctx context.Context, id string) error
}

// RecipeRepository is the recipe store. Update is a full replacement of the
// stored record.
type RecipeRepository interface {
	// List returns every recipe ordered by creation time, then id
	List(ctx context.Context) ([]*domain.Recipe, error)

	ListByCategoryID(ctx context.Context, categoryID string) ([]*domain.Recipe, error)

	FindByID(ctx context.Context, id string) (*domain.Recipe, error)

	Create(ctx context.Context, recipe *domain.Recipe) error

	Update(ctx context.Context, recipe *domain.Recipe) error

	Delete(ctx context.Context, id string) error
}

// NormalizeName returns the lookup key for a category or ingredient name.
func NormalizeName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}
