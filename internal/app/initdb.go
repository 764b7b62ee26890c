package app

import (
	"context"

	"go.uber.org/zap"
)

// DefaultCategories are created on first start when system.seed_categories is set.
var DefaultCategories = []string{"Breakfast", "Lunch", "Dinner", "Dessert"}

func (a *Application) checkCategories() {
	ctx := context.Background()
	for _, name := range DefaultCategories {
		category, created, err := a.categorySvc.EnsureCategory(ctx, name)
		if err != nil {
			zap.L().Error("failed to create default category", zap.String("name", name), zap.Error(err))
			continue
		}
		if created {
			zap.L().Info("initialized default category",
				zap.String("id", category.ID),
				zap.String("name", category.Name))
		}
	}
}
