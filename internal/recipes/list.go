package recipes

import (
	"context"
	"strings"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/talkincode/cookbook/internal/domain"
)

// StatusAll disables status filtering in List.
const StatusAll = "all"

type ListFilter struct {
	CategoryID   string
	CategoryName string // takes precedence over CategoryID; unknown names match nothing
	Search       string
	Status       string // "" means published only
	CreatedAfter *time.Time
}

// List returns the recipes matching filter ordered by creation time.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*domain.Recipe, error) {
	status := strings.TrimSpace(filter.Status)
	switch {
	case status == "":
		status = string(domain.StatusPublished)
	case status == StatusAll, domain.RecipeStatus(status).Valid():
	default:
		return nil, domain.Validation(domain.MsgInvalidStatusFilter)
	}

	categoryID := filter.CategoryID
	if name := strings.TrimSpace(filter.CategoryName); name != "" {
		category, err := s.categories.FindByName(ctx, name)
		if errors.Is(err, domain.ErrRecordNotFound) {
			return []*domain.Recipe{}, nil
		}
		if err != nil {
			return nil, err
		}
		categoryID = category.ID
	}

	var (
		items []*domain.Recipe
		err   error
	)
	if categoryID != "" {
		items, err = s.recipes.ListByCategoryID(ctx, categoryID)
	} else {
		items, err = s.recipes.List(ctx)
	}
	if err != nil {
		return nil, err
	}

	matchSearch, err := s.searchMatcher(ctx, filter.Search)
	if err != nil {
		return nil, err
	}

	result := make([]*domain.Recipe, 0, len(items))
	for _, recipe := range items {
		if status != StatusAll && string(recipe.Status) != status {
			continue
		}
		if filter.CreatedAfter != nil && recipe.CreatedAt.Before(*filter.CreatedAfter) {
			continue
		}
		if !matchSearch(recipe) {
			continue
		}
		result = append(result, recipe)
	}
	return result, nil
}

// searchMatcher matches a case-insensitive substring of the title, the
// description or any ingredient's catalog name.
func (s *Service) searchMatcher(ctx context.Context, search string) (func(*domain.Recipe) bool, error) {
	query := strings.ToLower(strings.TrimSpace(search))
	if query == "" {
		return func(*domain.Recipe) bool { return true }, nil
	}
	ingredients, err := s.ingredients.List(ctx)
	if err != nil {
		return nil, err
	}
	nameByID := make(map[string]string, len(ingredients))
	for _, ing := range ingredients {
		nameByID[ing.ID] = strings.ToLower(ing.Name)
	}
	return func(recipe *domain.Recipe) bool {
		if strings.Contains(strings.ToLower(recipe.Title), query) ||
			strings.Contains(strings.ToLower(recipe.Description), query) {
			return true
		}
		for _, ing := range recipe.Ingredients {
			if name, ok := nameByID[ing.IngredientID]; ok && strings.Contains(name, query) {
				return true
			}
		}
		return false
	}, nil
}

// Stats summarizes every stored recipe regardless of status.
func (s *Service) Stats(ctx context.Context) (*domain.RecipeStats, error) {
	items, err := s.recipes.List(ctx)
	if err != nil {
		return nil, err
	}
	result := &domain.RecipeStats{
		Total:    len(items),
		ByStatus: make(map[domain.RecipeStatus]int, len(domain.Statuses)),
	}
	for _, st := range domain.Statuses {
		result.ByStatus[st] = 0
	}
	if len(items) == 0 {
		return result, nil
	}

	servings := make(stats.Float64Data, 0, len(items))
	counts := make(stats.Float64Data, 0, len(items))
	for _, recipe := range items {
		result.ByStatus[recipe.Status]++
		servings = append(servings, float64(recipe.Servings))
		counts = append(counts, float64(len(recipe.Ingredients)))
	}
	if result.MeanServings, err = servings.Mean(); err != nil {
		return nil, errors.Wrap(err, "mean servings")
	}
	if result.MedianServings, err = servings.Median(); err != nil {
		return nil, errors.Wrap(err, "median servings")
	}
	if result.MeanIngredientCount, err = counts.Mean(); err != nil {
		return nil, errors.Wrap(err, "mean ingredient count")
	}
	result.MeanServings = round2(result.MeanServings)
	result.MeanIngredientCount = round2(result.MeanIngredientCount)
	return result, nil
}
