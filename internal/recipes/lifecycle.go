package recipes

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/talkincode/cookbook/internal/domain"
)

type CreateInput struct {
	Title       string
	Description string
	Ingredients []IngredientInput
	Steps       []string
	Servings    int
	CategoryID  string
}

// UpdateInput carries the fields to change; nil fields are left as stored.
type UpdateInput struct {
	Title       *string
	Description *string
	Ingredients *[]IngredientInput
	Steps       *[]string
	Servings    *int
	CategoryID  *string
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Recipe, error) {
	return s.findRecipe(ctx, id)
}

// Create validates title, category, ingredients and servings in that order,
// resolves the ingredients and stores a new draft.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Recipe, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, domain.Validation(domain.MsgTitleRequired)
	}

	s.catalogMu.RLock()
	defer s.catalogMu.RUnlock()

	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}
	items, err := normalizeIngredients(in.Ingredients)
	if err != nil {
		return nil, err
	}
	if in.Servings <= 0 {
		return nil, domain.Validation(domain.MsgServingsPositive)
	}
	resolved, err := s.resolveIngredients(ctx, items)
	if err != nil {
		return nil, err
	}

	recipe := &domain.Recipe{
		ID:          s.newID(),
		Title:       title,
		Description: in.Description,
		Ingredients: resolved,
		Steps:       copySteps(in.Steps),
		Servings:    in.Servings,
		CategoryID:  in.CategoryID,
		CreatedAt:   s.now(),
		Status:      domain.StatusDraft,
	}
	if err := s.recipes.Create(ctx, recipe); err != nil {
		return nil, errors.Wrap(err, "store recipe")
	}
	logRecipe("recipe created", recipe)
	s.publish(domain.TopicRecipeCreated, recipe)
	return recipe.Clone(), nil
}

// Update applies in to a draft or published recipe and writes back the full record.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*domain.Recipe, error) {
	unlock := s.locks.Lock(id)
	defer unlock()
	s.catalogMu.RLock()
	defer s.catalogMu.RUnlock()

	current, err := s.findRecipe(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == domain.StatusArchived {
		return nil, domain.Conflict(domain.MsgArchivedNotEditable)
	}

	updated := current.Clone()
	if in.CategoryID != nil {
		if *in.CategoryID == "" {
			return nil, domain.Validation(domain.MsgCategoryRequired)
		}
		if err := s.checkCategory(ctx, *in.CategoryID); err != nil {
			return nil, err
		}
		updated.CategoryID = *in.CategoryID
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, domain.Validation(domain.MsgTitleRequired)
		}
		updated.Title = title
	}
	if in.Description != nil {
		updated.Description = *in.Description
	}
	if in.Steps != nil {
		updated.Steps = copySteps(*in.Steps)
	}
	var items []IngredientInput
	if in.Ingredients != nil {
		if items, err = normalizeIngredients(*in.Ingredients); err != nil {
			return nil, err
		}
	}
	if in.Servings != nil {
		if *in.Servings <= 0 {
			return nil, domain.Validation(domain.MsgServingsPositive)
		}
		updated.Servings = *in.Servings
	}
	if items != nil {
		if updated.Ingredients, err = s.resolveIngredients(ctx, items); err != nil {
			return nil, err
		}
	}

	if err := s.recipes.Update(ctx, updated); err != nil {
		return nil, errors.Wrap(err, "store recipe")
	}
	logRecipe("recipe updated", updated)
	s.publish(domain.TopicRecipeUpdated, updated)
	return updated, nil
}

// Delete removes a draft or archived recipe.
func (s *Service) Delete(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	current, err := s.findRecipe(ctx, id)
	if err != nil {
		return err
	}
	if current.Status == domain.StatusPublished {
		return domain.Conflict(domain.MsgPublishedNoDelete)
	}
	if err := s.recipes.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return domain.NotFound(domain.MsgRecipeNotFound)
		}
		return errors.Wrap(err, "delete recipe")
	}
	logRecipe("recipe deleted", current)
	s.publish(domain.TopicRecipeDeleted, current)
	return nil
}

// Publish moves a draft to published. Publishing a published recipe is a
// no-op; archived recipes cannot come back.
func (s *Service) Publish(ctx context.Context, id string) (*domain.Recipe, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	current, err := s.findRecipe(ctx, id)
	if err != nil {
		return nil, err
	}
	switch current.Status {
	case domain.StatusPublished:
		return current, nil
	case domain.StatusArchived:
		return nil, domain.Conflict(domain.MsgArchivedNoPublish)
	}
	return s.transition(ctx, current, domain.StatusPublished, domain.TopicRecipePublished)
}

// Archive moves a draft or published recipe to archived. Archiving twice is a no-op.
func (s *Service) Archive(ctx context.Context, id string) (*domain.Recipe, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	current, err := s.findRecipe(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == domain.StatusArchived {
		return current, nil
	}
	return s.transition(ctx, current, domain.StatusArchived, domain.TopicRecipeArchived)
}

func (s *Service) transition(ctx context.Context, current *domain.Recipe, to domain.RecipeStatus, topic string) (*domain.Recipe, error) {
	updated := current.Clone()
	updated.Status = to
	if err := s.recipes.Update(ctx, updated); err != nil {
		return nil, errors.Wrap(err, "store recipe")
	}
	logRecipe("recipe "+string(to), updated)
	s.publish(topic, updated)
	return updated, nil
}

func copySteps(steps []string) []string {
	result := make([]string, len(steps))
	copy(result, steps)
	return result
}
