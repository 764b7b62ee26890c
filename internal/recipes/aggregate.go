package recipes

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/talkincode/cookbook/internal/domain"
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Scale returns a copy of the recipe recomputed for servings. The stored
// record is not touched.
func (s *Service) Scale(ctx context.Context, id string, servings int) (*domain.Recipe, error) {
	if servings <= 0 {
		return nil, domain.Validation(domain.MsgServingsPositive)
	}
	recipe, err := s.findRecipe(ctx, id)
	if err != nil {
		return nil, err
	}

	factor := float64(servings) / float64(recipe.Servings)
	scaled := recipe.Clone()
	scaled.Servings = servings
	for i := range scaled.Ingredients {
		scaled.Ingredients[i].Quantity = round2(scaled.Ingredients[i].Quantity * factor)
	}
	return scaled, nil
}

type lineKey struct {
	ingredientID string
	unit         string
}

// GenerateShoppingList merges the ingredient lines of the given recipes into
// one entry per (ingredient, unit), sorted by ingredient name. A recipe id
// listed twice contributes twice.
func (s *Service) GenerateShoppingList(ctx context.Context, recipeIDs []string) ([]domain.ShoppingListItem, error) {
	if len(recipeIDs) == 0 {
		return nil, domain.Validation(domain.MsgRecipeIDsRequired)
	}

	recipes := make([]*domain.Recipe, 0, len(recipeIDs))
	var missing []string
	reported := make(map[string]bool)
	for _, id := range recipeIDs {
		recipe, err := s.recipes.FindByID(ctx, id)
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			if !reported[id] {
				reported[id] = true
				missing = append(missing, id)
			}
		case err != nil:
			return nil, err
		default:
			recipes = append(recipes, recipe)
		}
	}
	if len(missing) > 0 {
		return nil, domain.NotFound(domain.MsgRecipeNotFound + ": " + strings.Join(missing, ", "))
	}

	totals := make(map[lineKey]float64)
	var order []lineKey
	for _, recipe := range recipes {
		for _, ing := range recipe.Ingredients {
			key := lineKey{ingredientID: ing.IngredientID, unit: ing.Unit}
			if _, ok := totals[key]; !ok {
				order = append(order, key)
			}
			totals[key] += ing.Quantity
		}
	}

	names, err := s.ingredientNames(ctx, order)
	if err != nil {
		return nil, err
	}

	items := make([]domain.ShoppingListItem, 0, len(order))
	for _, key := range order {
		items = append(items, domain.ShoppingListItem{
			IngredientID: key.ingredientID,
			Name:         names[key.ingredientID],
			Unit:         key.unit,
			Quantity:     round2(totals[key]),
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Name < items[j].Name
	})
	return items, nil
}

// ingredientNames looks up the display name of every distinct ingredient on
// the worker pool.
func (s *Service) ingredientNames(ctx context.Context, keys []lineKey) (map[string]string, error) {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		names    = make(map[string]string, len(keys))
		firstErr error
	)
	for _, key := range keys {
		id := key.ingredientID
		mu.Lock()
		_, seen := names[id]
		names[id] = ""
		mu.Unlock()
		if seen {
			continue
		}

		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			ingredient, err := s.ingredients.FindByID(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, domain.ErrRecordNotFound):
				if firstErr == nil {
					firstErr = domain.NotFound(domain.MsgIngredientNotFound)
				}
			case err != nil:
				if firstErr == nil {
					firstErr = err
				}
			default:
				names[id] = ingredient.Name
			}
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, errors.Wrap(err, "submit name lookup")
		}
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return names, nil
}
