package recipes

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/talkincode/cookbook/internal/domain"
	"github.com/talkincode/cookbook/internal/repository"
	"go.uber.org/zap"
)

// IngredientInput is a free-form ingredient line as supplied by a caller.
type IngredientInput struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// normalizeIngredients trims and validates every line, failing on the first
// violation. Nothing is written.
func normalizeIngredients(inputs []IngredientInput) ([]IngredientInput, error) {
	if len(inputs) == 0 {
		return nil, domain.Validation(domain.MsgIngredientsRequired)
	}
	result := make([]IngredientInput, 0, len(inputs))
	for _, in := range inputs {
		item := IngredientInput{
			Name:     strings.TrimSpace(in.Name),
			Quantity: in.Quantity,
			Unit:     strings.TrimSpace(in.Unit),
		}
		switch {
		case item.Name == "":
			return nil, domain.Validation(domain.MsgIngredientName)
		case !(item.Quantity > 0):
			return nil, domain.Validation(domain.MsgQuantityPositive)
		case item.Unit == "":
			return nil, domain.Validation(domain.MsgUnitRequired)
		}
		result = append(result, item)
	}
	return result, nil
}

// resolveIngredients maps validated lines to catalog ids in input order,
// creating catalog entries for unknown names.
func (s *Service) resolveIngredients(ctx context.Context, items []IngredientInput) ([]domain.RecipeIngredient, error) {
	resolved := make([]domain.RecipeIngredient, 0, len(items))
	for _, item := range items {
		ingredient, err := s.findOrCreateIngredient(ctx, item.Name)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, domain.RecipeIngredient{
			IngredientID: ingredient.ID,
			Quantity:     item.Quantity,
			Unit:         item.Unit,
		})
	}
	return resolved, nil
}

// findOrCreateIngredient is atomic per normalized name: concurrent callers for
// the same name share one lookup-and-create. The shared call runs detached
// from the first caller's cancellation so waiters never inherit it.
func (s *Service) findOrCreateIngredient(ctx context.Context, name string) (*domain.Ingredient, error) {
	key := repository.NormalizeName(name)
	v, err, _ := s.resolving.Do(key, func() (interface{}, error) {
		ctx := context.WithoutCancel(ctx)
		existing, err := s.ingredients.FindByName(ctx, name)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, domain.ErrRecordNotFound) {
			return nil, err
		}

		ingredient := &domain.Ingredient{ID: s.newID(), Name: name, CreatedAt: s.now()}
		if err := s.ingredients.Create(ctx, ingredient); err != nil {
			if !domain.IsConflict(err) {
				return nil, err
			}
			// created elsewhere since the lookup
			existing, err := s.ingredients.FindByName(ctx, name)
			if err != nil {
				return nil, err
			}
			return existing, nil
		}
		zap.L().Debug("ingredient created",
			zap.String("namespace", "catalog"),
			zap.String("id", ingredient.ID),
			zap.String("name", ingredient.Name))
		return ingredient, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Ingredient), nil
}
