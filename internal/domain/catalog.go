package domain

import "time"

// Category groups recipes. Names are unique under case-insensitive trimmed comparison.
type Category struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Name      string    `json:"name" gorm:"size:255"`
	NameKey   string    `json:"-" gorm:"size:255;uniqueIndex"` // folded, trimmed Name
	CreatedAt time.Time `json:"createdAt"`
}

// TableName specifies the table name
func (Category) TableName() string {
	return "category"
}

// Ingredient is a catalog entry, created lazily the first time a recipe names it.
type Ingredient struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Name      string    `json:"name" gorm:"size:255"`
	NameKey   string    `json:"-" gorm:"size:255;uniqueIndex"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName specifies the table name
func (Ingredient) TableName() string {
	return "ingredient"
}
