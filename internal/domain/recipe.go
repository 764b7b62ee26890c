package domain

import "time"

type RecipeStatus string

const (
	StatusDraft     RecipeStatus = "draft"
	StatusPublished RecipeStatus = "published"
	StatusArchived  RecipeStatus = "archived"
)

// Statuses lists every lifecycle state in transition order.
var Statuses = []RecipeStatus{StatusDraft, StatusPublished, StatusArchived}

func (s RecipeStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// RecipeIngredient is a resolved ingredient line of a recipe.
type RecipeIngredient struct {
	IngredientID string  `json:"ingredientId"`
	Quantity     float64 `json:"quantity"`
	Unit         string  `json:"unit"`
}

type Recipe struct {
	ID          string             `json:"id" gorm:"primaryKey;size:32"`
	Title       string             `json:"title" gorm:"size:255"`
	Description string             `json:"description,omitempty" gorm:"type:text"`
	Ingredients []RecipeIngredient `json:"ingredients" gorm:"serializer:json;type:text"`
	Steps       []string           `json:"steps" gorm:"serializer:json;type:text"`
	Servings    int                `json:"servings"`
	CategoryID  string             `json:"categoryId" gorm:"size:32;index"`
	CreatedAt   time.Time          `json:"createdAt" gorm:"index"`
	Status      RecipeStatus       `json:"status" gorm:"size:16;index"`
}

// TableName specifies the table name
func (Recipe) TableName() string {
	return "recipe"
}

// Clone returns a copy that shares no slices with r.
func (r *Recipe) Clone() *Recipe {
	if r == nil {
		return nil
	}
	c := *r
	c.Ingredients = append([]RecipeIngredient(nil), r.Ingredients...)
	c.Steps = append([]string(nil), r.Steps...)
	if c.Ingredients == nil {
		c.Ingredients = []RecipeIngredient{}
	}
	if c.Steps == nil {
		c.Steps = []string{}
	}
	return &c
}

// UsesIngredient reports whether any line of r references the ingredient id.
func (r *Recipe) UsesIngredient(id string) bool {
	for _, ing := range r.Ingredients {
		if ing.IngredientID == id {
			return true
		}
	}
	return false
}

// ShoppingListItem is one aggregated (ingredient, unit) line. It is never persisted.
type ShoppingListItem struct {
	IngredientID string  `json:"ingredientId" csv:"ingredient_id"`
	Name         string  `json:"name" csv:"name"`
	Unit         string  `json:"unit" csv:"unit"`
	Quantity     float64 `json:"quantity" csv:"quantity"`
}

// RecipeStats summarizes the recipe store.
type RecipeStats struct {
	Total               int                  `json:"total"`
	ByStatus            map[RecipeStatus]int `json:"byStatus"`
	MeanServings        float64              `json:"meanServings"`
	MedianServings      float64              `json:"medianServings"`
	MeanIngredientCount float64              `json:"meanIngredientCount"`
}
