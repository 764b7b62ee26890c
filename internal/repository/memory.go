package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/btree"
	"github.com/pkg/errors"
	"github.com/talkincode/cookbook/internal/domain"
)

var (
	_ CategoryRepository   = (*MemoryCategoryRepository)(nil)
	_ IngredientRepository = (*MemoryIngredientRepository)(nil)
	_ RecipeRepository     = (*MemoryRecipeRepository)(nil)
)

type nameEntry struct {
	key string
	id  string
}

func newNameIndex() *btree.BTreeG[nameEntry] {
	return btree.NewG(16, func(a, b nameEntry) bool { return a.key < b.key })
}

// MemoryCategoryRepository keeps categories in process memory.
type MemoryCategoryRepository struct {
	mu     sync.RWMutex
	items  map[string]domain.Category
	byName *btree.BTreeG[nameEntry]
}

func NewMemoryCategoryRepository() *MemoryCategoryRepository {
	return &MemoryCategoryRepository{
		items:  make(map[string]domain.Category),
		byName: newNameIndex(),
	}
}

func (r *MemoryCategoryRepository) List(_ context.Context) ([]*domain.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*domain.Category, 0, len(r.items))
	r.byName.Ascend(func(e nameEntry) bool {
		c := r.items[e.id]
		result = append(result, &c)
		return true
	})
	return result, nil
}

func (r *MemoryCategoryRepository) FindByID(_ context.Context, id string) (*domain.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.items[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return &c, nil
}

func (r *MemoryCategoryRepository) FindByName(_ context.Context, name string) (*domain.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byName.Get(nameEntry{key: NormalizeName(name)})
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	c := r.items[e.id]
	return &c, nil
}

func (r *MemoryCategoryRepository) Create(_ context.Context, category *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[category.ID]; ok {
		return errors.Errorf("duplicate category id %s", category.ID)
	}
	key := NormalizeName(category.Name)
	if _, ok := r.byName.Get(nameEntry{key: key}); ok {
		return domain.Conflict(domain.MsgCategoryNameUnique)
	}
	category.NameKey = key
	r.items[category.ID] = *category
	r.byName.ReplaceOrInsert(nameEntry{key: key, id: category.ID})
	return nil
}

func (r *MemoryCategoryRepository) Update(_ context.Context, category *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.items[category.ID]
	if !ok {
		return domain.ErrRecordNotFound
	}
	key := NormalizeName(category.Name)
	if e, ok := r.byName.Get(nameEntry{key: key}); ok && e.id != category.ID {
		return domain.Conflict(domain.MsgCategoryNameUnique)
	}
	r.byName.Delete(nameEntry{key: old.NameKey})
	category.NameKey = key
	r.items[category.ID] = *category
	r.byName.ReplaceOrInsert(nameEntry{key: key, id: category.ID})
	return nil
}

func (r *MemoryCategoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.items[id]
	if !ok {
		return domain.ErrRecordNotFound
	}
	r.byName.Delete(nameEntry{key: old.NameKey})
	delete(r.items, id)
	return nil
}

// MemoryIngredientRepository keeps the ingredient catalog in process memory.
type MemoryIngredientRepository struct {
	mu     sync.RWMutex
	items  map[string]domain.Ingredient
	byName *btree.BTreeG[nameEntry]
}

func NewMemoryIngredientRepository() *MemoryIngredientRepository {
	return &MemoryIngredientRepository{
		items:  make(map[string]domain.Ingredient),
		byName: newNameIndex(),
	}
}

func (r *MemoryIngredientRepository) List(_ context.Context) ([]*domain.Ingredient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*domain.Ingredient, 0, len(r.items))
	r.byName.Ascend(func(e nameEntry) bool {
		ing := r.items[e.id]
		result = append(result, &ing)
		return true
	})
	return result, nil
}

func (r *MemoryIngredientRepository) FindByID(_ context.Context, id string) (*domain.Ingredient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ing, ok := r.items[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return &ing, nil
}

func (r *MemoryIngredientRepository) FindByName(_ context.Context, name string) (*domain.Ingredient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byName.Get(nameEntry{key: NormalizeName(name)})
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	ing := r.items[e.id]
	return &ing, nil
}

func (r *MemoryIngredientRepository) Create(_ context.Context, ingredient *domain.Ingredient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[ingredient.ID]; ok {
		return errors.Errorf("duplicate ingredient id %s", ingredient.ID)
	}
	key := NormalizeName(ingredient.Name)
	if _, ok := r.byName.Get(nameEntry{key: key}); ok {
		return domain.Conflict(domain.MsgIngredientNameUnique)
	}
	ingredient.NameKey = key
	r.items[ingredient.ID] = *ingredient
	r.byName.ReplaceOrInsert(nameEntry{key: key, id: ingredient.ID})
	return nil
}

func (r *MemoryIngredientRepository) Update(_ context.Context, ingredient *domain.Ingredient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.items[ingredient.ID]
	if !ok {
		return domain.ErrRecordNotFound
	}
	key := NormalizeName(ingredient.Name)
	if e, ok := r.byName.Get(nameEntry{key: key}); ok && e.id != ingredient.ID {
		return domain.Conflict(domain.MsgIngredientNameUnique)
	}
	r.byName.Delete(nameEntry{key: old.NameKey})
	ingredient.NameKey = key
	r.items[ingredient.ID] = *ingredient
	r.byName.ReplaceOrInsert(nameEntry{key: key, id: ingredient.ID})
	return nil
}

func (r *MemoryIngredientRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.items[id]
	if !ok {
		return domain.ErrRecordNotFound
	}
	r.byName.Delete(nameEntry{key: old.NameKey})
	delete(r.items, id)
	return nil
}

// MemoryRecipeRepository is an id-keyed recipe store. Records are copied on
// the way in and out.
type MemoryRecipeRepository struct {
	mu    sync.RWMutex
	items map[string]*domain.Recipe
}

func NewMemoryRecipeRepository() *MemoryRecipeRepository {
	return &MemoryRecipeRepository{items: make(map[string]*domain.Recipe)}
}

func (r *MemoryRecipeRepository) List(_ context.Context) ([]*domain.Recipe, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(*domain.Recipe) bool { return true }), nil
}

func (r *MemoryRecipeRepository) ListByCategoryID(_ context.Context, categoryID string) ([]*domain.Recipe, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(rec *domain.Recipe) bool { return rec.CategoryID == categoryID }), nil
}

func (r *MemoryRecipeRepository) collect(match func(*domain.Recipe) bool) []*domain.Recipe {
	result := make([]*domain.Recipe, 0, len(r.items))
	for _, rec := range r.items {
		if match(rec) {
			result = append(result, rec.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

func (r *MemoryRecipeRepository) FindByID(_ context.Context, id string) (*domain.Recipe, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.items[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return rec.Clone(), nil
}

func (r *MemoryRecipeRepository) Create(_ context.Context, recipe *domain.Recipe) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[recipe.ID]; ok {
		return errors.Errorf("duplicate recipe id %s", recipe.ID)
	}
	r.items[recipe.ID] = recipe.Clone()
	return nil
}

func (r *MemoryRecipeRepository) Update(_ context.Context, recipe *domain.Recipe) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[recipe.ID]; !ok {
		return domain.ErrRecordNotFound
	}
	r.items[recipe.ID] = recipe.Clone()
	return nil
}

func (r *MemoryRecipeRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return domain.ErrRecordNotFound
	}
	delete(r.items, id)
	return nil
}
