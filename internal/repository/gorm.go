package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/talkincode/cookbook/internal/domain"
	"gorm.io/gorm"
)

var (
	_ CategoryRepository   = (*GormCategoryRepository)(nil)
	_ IngredientRepository = (*GormIngredientRepository)(nil)
	_ RecipeRepository     = (*GormRecipeRepository)(nil)
)

// notFound maps gorm's miss to the repository sentinel and wraps anything else.
func notFound(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrRecordNotFound
	}
	return errors.Wrap(err, msg)
}

// GormCategoryRepository is the GORM implementation of CategoryRepository
type GormCategoryRepository struct {
	db *gorm.DB
}

func NewGormCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

func (r *GormCategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	var items []*domain.Category
	if err := r.db.WithContext(ctx).Order("name_key ASC").Find(&items).Error; err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	return items, nil
}

func (r *GormCategoryRepository) FindByID(ctx context.Context, id string) (*domain.Category, error) {
	var item domain.Category
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, notFound(err, "find category")
	}
	return &item, nil
}

func (r *GormCategoryRepository) FindByName(ctx context.Context, name string) (*domain.Category, error) {
	var item domain.Category
	if err := r.db.WithContext(ctx).Where("name_key = ?", NormalizeName(name)).First(&item).Error; err != nil {
		return nil, notFound(err, "find category by name")
	}
	return &item, nil
}

func (r *GormCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	category.NameKey = NormalizeName(category.Name)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if taken, err := nameTaken(tx, &domain.Category{}, category.NameKey, ""); err != nil {
			return err
		} else if taken {
			return domain.Conflict(domain.MsgCategoryNameUnique)
		}
		return writeUnique(tx.Create(category).Error, domain.MsgCategoryNameUnique, "create category")
	})
}

func (r *GormCategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	category.NameKey = NormalizeName(category.Name)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current domain.Category
		if err := tx.Where("id = ?", category.ID).First(&current).Error; err != nil {
			return notFound(err, "find category")
		}
		if taken, err := nameTaken(tx, &domain.Category{}, category.NameKey, category.ID); err != nil {
			return err
		} else if taken {
			return domain.Conflict(domain.MsgCategoryNameUnique)
		}
		return writeUnique(tx.Save(category).Error, domain.MsgCategoryNameUnique, "update category")
	})
}

func (r *GormCategoryRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(r.db.WithContext(ctx), &domain.Category{}, id)
}

// GormIngredientRepository is the GORM implementation of IngredientRepository
type GormIngredientRepository struct {
	db *gorm.DB
}

func NewGormIngredientRepository(db *gorm.DB) *GormIngredientRepository {
	return &GormIngredientRepository{db: db}
}

func (r *GormIngredientRepository) List(ctx context.Context) ([]*domain.Ingredient, error) {
	var items []*domain.Ingredient
	if err := r.db.WithContext(ctx).Order("name_key ASC").Find(&items).Error; err != nil {
		return nil, errors.Wrap(err, "list ingredients")
	}
	return items, nil
}

func (r *GormIngredientRepository) FindByID(ctx context.Context, id string) (*domain.Ingredient, error) {
	var item domain.Ingredient
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, notFound(err, "find ingredient")
	}
	return &item, nil
}

func (r *GormIngredientRepository) FindByName(ctx context.Context, name string) (*domain.Ingredient, error) {
	var item domain.Ingredient
	if err := r.db.WithContext(ctx).Where("name_key = ?", NormalizeName(name)).First(&item).Error; err != nil {
		return nil, notFound(err, "find ingredient by name")
	}
	return &item, nil
}

func (r *GormIngredientRepository) Create(ctx context.Context, ingredient *domain.Ingredient) error {
	ingredient.NameKey = NormalizeName(ingredient.Name)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if taken, err := nameTaken(tx, &domain.Ingredient{}, ingredient.NameKey, ""); err != nil {
			return err
		} else if taken {
			return domain.Conflict(domain.MsgIngredientNameUnique)
		}
		return writeUnique(tx.Create(ingredient).Error, domain.MsgIngredientNameUnique, "create ingredient")
	})
}

func (r *GormIngredientRepository) Update(ctx context.Context, ingredient *domain.Ingredient) error {
	ingredient.NameKey = NormalizeName(ingredient.Name)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current domain.Ingredient
		if err := tx.Where("id = ?", ingredient.ID).First(&current).Error; err != nil {
			return notFound(err, "find ingredient")
		}
		if taken, err := nameTaken(tx, &domain.Ingredient{}, ingredient.NameKey, ingredient.ID); err != nil {
			return err
		} else if taken {
			return domain.Conflict(domain.MsgIngredientNameUnique)
		}
		return writeUnique(tx.Save(ingredient).Error, domain.MsgIngredientNameUnique, "update ingredient")
	})
}

func (r *GormIngredientRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(r.db.WithContext(ctx), &domain.Ingredient{}, id)
}

// GormRecipeRepository is the GORM implementation of RecipeRepository
type GormRecipeRepository struct {
	db *gorm.DB
}

func NewGormRecipeRepository(db *gorm.DB) *GormRecipeRepository {
	return &GormRecipeRepository{db: db}
}

func (r *GormRecipeRepository) List(ctx context.Context) ([]*domain.Recipe, error) {
	var items []*domain.Recipe
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, errors.Wrap(err, "list recipes")
	}
	return items, nil
}

func (r *GormRecipeRepository) ListByCategoryID(ctx context.Context, categoryID string) ([]*domain.Recipe, error) {
	var items []*domain.Recipe
	err := r.db.WithContext(ctx).
		Where("category_id = ?", categoryID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, errors.Wrap(err, "list recipes by category")
	}
	return items, nil
}

func (r *GormRecipeRepository) FindByID(ctx context.Context, id string) (*domain.Recipe, error) {
	var item domain.Recipe
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, notFound(err, "find recipe")
	}
	return &item, nil
}

func (r *GormRecipeRepository) Create(ctx context.Context, recipe *domain.Recipe) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(recipe).Error, "create recipe")
}

// Update replaces the stored record. Save would insert a missing row, so the
// row is checked first.
func (r *GormRecipeRepository) Update(ctx context.Context, recipe *domain.Recipe) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Recipe{}).Where("id = ?", recipe.ID).Count(&count).Error; err != nil {
			return errors.Wrap(err, "find recipe")
		}
		if count == 0 {
			return domain.ErrRecordNotFound
		}
		return errors.Wrap(tx.Save(recipe).Error, "update recipe")
	})
}

func (r *GormRecipeRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(r.db.WithContext(ctx), &domain.Recipe{}, id)
}

// writeUnique turns a name_key unique-index violation into a conflict. The
// count check in the same transaction does not stop another connection from
// inserting the same name first.
func writeUnique(err error, conflictMsg, msg string) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return domain.Conflict(conflictMsg)
	}
	return errors.Wrap(err, msg)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	// sqlite reports "UNIQUE constraint failed: <table>.<column>"
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nameTaken(tx *gorm.DB, model interface{}, key, exceptID string) (bool, error) {
	query := tx.Model(model).Where("name_key = ?", key)
	if exceptID != "" {
		query = query.Where("id <> ?", exceptID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, errors.Wrap(err, "check name")
	}
	return count > 0, nil
}

func deleteByID(db *gorm.DB, model interface{}, id string) error {
	result := db.Where("id = ?", id).Delete(model)
	if result.Error != nil {
		return errors.Wrap(result.Error, "delete")
	}
	if result.RowsAffected == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}
