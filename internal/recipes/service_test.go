package recipes

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/cookbook/internal/domain"
	"github.com/talkincode/cookbook/internal/repository"
)

type fixture struct {
	svc         *Service
	recipes     *repository.MemoryRecipeRepository
	categories  *repository.MemoryCategoryRepository
	ingredients *repository.MemoryIngredientRepository
	categoryID  string
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		recipes:     repository.NewMemoryRecipeRepository(),
		categories:  repository.NewMemoryCategoryRepository(),
		ingredients: repository.NewMemoryIngredientRepository(),
		categoryID:  "cat-dinner",
	}
	require.NoError(t, f.categories.Create(context.Background(), &domain.Category{
		ID: f.categoryID, Name: "Dinner", CreatedAt: time.Now(),
	}))

	var seq int64
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	defaults := []Option{
		WithIDGenerator(func() string { return fmt.Sprintf("id-%04d", atomic.AddInt64(&seq, 1)) }),
		WithClock(func() time.Time { return base.Add(time.Duration(atomic.AddInt64(&seq, 0)) * time.Minute) }),
		WithWorkers(2),
	}
	svc, err := NewService(f.recipes, f.categories, f.ingredients, append(defaults, opts...)...)
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	f.svc = svc
	return f
}

func (f *fixture) input(title string, ingredients ...IngredientInput) CreateInput {
	if len(ingredients) == 0 {
		ingredients = []IngredientInput{{Name: "Flour", Quantity: 2, Unit: "cup"}}
	}
	return CreateInput{
		Title:       title,
		Ingredients: ingredients,
		Steps:       []string{"mix", "bake"},
		Servings:    4,
		CategoryID:  f.categoryID,
	}
}

func (f *fixture) create(t *testing.T, title string, ingredients ...IngredientInput) *domain.Recipe {
	t.Helper()
	recipe, err := f.svc.Create(context.Background(), f.input(title, ingredients...))
	require.NoError(t, err)
	return recipe
}

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

func TestCreateStartsAsDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.create(t, "  Bread  ")
	b := f.create(t, "Cake")

	assert.Equal(t, domain.StatusDraft, a.Status)
	assert.Equal(t, "Bread", a.Title)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, []string{"mix", "bake"}, a.Steps)

	stored, err := f.svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a, stored)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CreateInput)
		msg    string
		check  func(error) bool
	}{
		{"blank title", func(in *CreateInput) { in.Title = "   " }, domain.MsgTitleRequired, domain.IsValidation},
		{"unknown category", func(in *CreateInput) { in.CategoryID = "nope" }, domain.MsgCategoryNotExist, domain.IsNotFound},
		{"no ingredients", func(in *CreateInput) { in.Ingredients = nil }, domain.MsgIngredientsRequired, domain.IsValidation},
		{"blank ingredient name", func(in *CreateInput) {
			in.Ingredients = []IngredientInput{{Name: " ", Quantity: 1, Unit: "g"}}
		}, domain.MsgIngredientName, domain.IsValidation},
		{"zero quantity", func(in *CreateInput) {
			in.Ingredients = []IngredientInput{{Name: "Salt", Quantity: 0, Unit: "g"}}
		}, domain.MsgQuantityPositive, domain.IsValidation},
		{"negative quantity", func(in *CreateInput) {
			in.Ingredients = []IngredientInput{{Name: "Salt", Quantity: -1, Unit: "g"}}
		}, domain.MsgQuantityPositive, domain.IsValidation},
		{"blank unit", func(in *CreateInput) {
			in.Ingredients = []IngredientInput{{Name: "Salt", Quantity: 1, Unit: "  "}}
		}, domain.MsgUnitRequired, domain.IsValidation},
		{"zero servings", func(in *CreateInput) { in.Servings = 0 }, domain.MsgServingsPositive, domain.IsValidation},
		{"title checked before category", func(in *CreateInput) {
			in.Title = ""
			in.CategoryID = "nope"
		}, domain.MsgTitleRequired, domain.IsValidation},
		{"ingredients checked before servings", func(in *CreateInput) {
			in.Ingredients = nil
			in.Servings = -2
		}, domain.MsgIngredientsRequired, domain.IsValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := f.input("Bread")
			tt.mutate(&in)
			_, err := f.svc.Create(ctx, in)
			require.Error(t, err)
			assert.EqualError(t, err, tt.msg)
			assert.True(t, tt.check(err))
		})
	}

	all, err := f.svc.List(ctx, ListFilter{Status: StatusAll})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFailedValidationCreatesNoCatalogEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := f.input("Bread",
		IngredientInput{Name: "Yeast", Quantity: 1, Unit: "tsp"},
		IngredientInput{Name: "Water", Quantity: 0, Unit: "ml"},
	)
	_, err := f.svc.Create(ctx, in)
	require.Error(t, err)

	in = f.input("Bread", IngredientInput{Name: "Yeast", Quantity: 1, Unit: "tsp"})
	in.Servings = 0
	_, err = f.svc.Create(ctx, in)
	require.Error(t, err)

	catalog, err := f.ingredients.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, catalog)
}

func TestIngredientResolutionDeduplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.create(t, "Bread", IngredientInput{Name: "Flour", Quantity: 500, Unit: "g"})
	b := f.create(t, "Cake", IngredientInput{Name: " flour ", Quantity: 200, Unit: " g "})

	catalog, err := f.ingredients.List(ctx)
	require.NoError(t, err)
	require.Len(t, catalog, 1)
	assert.Equal(t, "Flour", catalog[0].Name)
	assert.Equal(t, a.Ingredients[0].IngredientID, b.Ingredients[0].IngredientID)
	assert.Equal(t, "g", b.Ingredients[0].Unit)
}

func TestIngredientResolutionKeepsInputOrder(t *testing.T) {
	f := newFixture(t)
	recipe := f.create(t, "Salad",
		IngredientInput{Name: "Tomato", Quantity: 2, Unit: "pc"},
		IngredientInput{Name: "Basil", Quantity: 5, Unit: "leaf"},
		IngredientInput{Name: "tomato", Quantity: 1, Unit: "pc"},
	)
	require.Len(t, recipe.Ingredients, 3)
	assert.Equal(t, recipe.Ingredients[0].IngredientID, recipe.Ingredients[2].IngredientID)
	assert.NotEqual(t, recipe.Ingredients[0].IngredientID, recipe.Ingredients[1].IngredientID)
	// catalog ids are issued in input order
	assert.Less(t, recipe.Ingredients[0].IngredientID, recipe.Ingredients[1].IngredientID)
}

func TestConcurrentResolutionCreatesOneEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := "Saffron"
			if i%2 == 0 {
				name = "  SAFFRON "
			}
			_, err := f.svc.Create(ctx, f.input(fmt.Sprintf("Paella %d", i),
				IngredientInput{Name: name, Quantity: 1, Unit: "pinch"}))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	catalog, err := f.ingredients.List(ctx)
	require.NoError(t, err)
	assert.Len(t, catalog, 1)
}

// gatedIngredients blocks the first name lookup until released and fails any
// call whose context is already done.
type gatedIngredients struct {
	*repository.MemoryIngredientRepository
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedIngredients) FindByName(ctx context.Context, name string) (*domain.Ingredient, error) {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.MemoryIngredientRepository.FindByName(ctx, name)
}

func (g *gatedIngredients) Create(ctx context.Context, ingredient *domain.Ingredient) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return g.MemoryIngredientRepository.Create(ctx, ingredient)
}

func TestResolutionSurvivesFirstCallerCancellation(t *testing.T) {
	ingredients := &gatedIngredients{
		MemoryIngredientRepository: repository.NewMemoryIngredientRepository(),
		entered:                    make(chan struct{}),
		release:                    make(chan struct{}),
	}
	svc, err := NewService(repository.NewMemoryRecipeRepository(), repository.NewMemoryCategoryRepository(), ingredients)
	require.NoError(t, err)
	defer svc.Close()

	first, cancel := context.WithCancel(context.Background())
	type result struct {
		ingredient *domain.Ingredient
		err        error
	}
	firstDone := make(chan result, 1)
	go func() {
		ing, err := svc.findOrCreateIngredient(first, "Saffron")
		firstDone <- result{ing, err}
	}()
	<-ingredients.entered

	secondDone := make(chan result, 1)
	go func() {
		ing, err := svc.findOrCreateIngredient(context.Background(), "saffron")
		secondDone <- result{ing, err}
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	close(ingredients.release)

	a := <-firstDone
	b := <-secondDone
	require.NoError(t, a.err)
	require.NoError(t, b.err)
	assert.Equal(t, a.ingredient.ID, b.ingredient.ID)

	all, err := ingredients.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.categories.Create(ctx, &domain.Category{ID: "cat-lunch", Name: "Lunch"}))
	recipe := f.create(t, "Bread")

	ingredients := []IngredientInput{{Name: "Rye", Quantity: 300, Unit: "g"}}
	steps := []string{"knead"}
	updated, err := f.svc.Update(ctx, recipe.ID, UpdateInput{
		Title:       strPtr(" Rye bread "),
		Description: strPtr("dense"),
		Ingredients: &ingredients,
		Steps:       &steps,
		Servings:    intPtr(6),
		CategoryID:  strPtr("cat-lunch"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Rye bread", updated.Title)
	assert.Equal(t, "dense", updated.Description)
	assert.Equal(t, []string{"knead"}, updated.Steps)
	assert.Equal(t, 6, updated.Servings)
	assert.Equal(t, "cat-lunch", updated.CategoryID)
	require.Len(t, updated.Ingredients, 1)
	assert.Equal(t, 300.0, updated.Ingredients[0].Quantity)
	assert.Equal(t, recipe.CreatedAt, updated.CreatedAt)
	assert.Equal(t, domain.StatusDraft, updated.Status)

	stored, err := f.svc.Get(ctx, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, stored)

	// omitted fields stay as they are
	again, err := f.svc.Update(ctx, recipe.ID, UpdateInput{Description: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, "Rye bread", again.Title)
	assert.Equal(t, "", again.Description)
	assert.Equal(t, 6, again.Servings)
}

func TestUpdateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	recipe := f.create(t, "Bread")
	empty := []IngredientInput{}

	tests := []struct {
		name  string
		in    UpdateInput
		msg   string
		check func(error) bool
	}{
		{"unknown recipe", UpdateInput{}, domain.MsgRecipeNotFound, domain.IsNotFound},
		{"blank title", UpdateInput{Title: strPtr(" ")}, domain.MsgTitleRequired, domain.IsValidation},
		{"unknown category", UpdateInput{CategoryID: strPtr("nope")}, domain.MsgCategoryNotExist, domain.IsNotFound},
		{"empty category", UpdateInput{CategoryID: strPtr("")}, domain.MsgCategoryRequired, domain.IsValidation},
		{"empty ingredients", UpdateInput{Ingredients: &empty}, domain.MsgIngredientsRequired, domain.IsValidation},
		{"zero servings", UpdateInput{Servings: intPtr(0)}, domain.MsgServingsPositive, domain.IsValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := recipe.ID
			if tt.name == "unknown recipe" {
				id = "missing"
			}
			_, err := f.svc.Update(ctx, id, tt.in)
			assert.EqualError(t, err, tt.msg)
			assert.True(t, tt.check(err))
		})
	}

	stored, err := f.svc.Get(ctx, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, recipe, stored)
}

func TestArchivedRecipesCannotBeEdited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	recipe := f.create(t, "Bread")
	archived, err := f.svc.Archive(ctx, recipe.ID)
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, recipe.ID, UpdateInput{Title: strPtr("Changed")})
	assert.EqualError(t, err, domain.MsgArchivedNotEditable)
	assert.True(t, domain.IsConflict(err))

	stored, err := f.svc.Get(ctx, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, archived, stored)
}

func TestPublishedRecipesCanBeEdited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	recipe := f.create(t, "Bread")
	_, err := f.svc.Publish(ctx, recipe.ID)
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, recipe.ID, UpdateInput{Title: strPtr("Sourdough")})
	require.NoError(t, err)
	assert.Equal(t, "Sourdough", updated.Title)
	assert.Equal(t, domain.StatusPublished, updated.Status)
}

func TestDeletePermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draft := f.create(t, "Draft")
	require.NoError(t, f.svc.Delete(ctx, draft.ID))
	_, err := f.svc.Get(ctx, draft.ID)
	assert.True(t, domain.IsNotFound(err))

	published := f.create(t, "Published")
	_, err = f.svc.Publish(ctx, published.ID)
	require.NoError(t, err)
	err = f.svc.Delete(ctx, published.ID)
	assert.EqualError(t, err, domain.MsgPublishedNoDelete)
	assert.True(t, domain.IsConflict(err))
	stored, err := f.svc.Get(ctx, published.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPublished, stored.Status)

	_, err = f.svc.Archive(ctx, published.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, published.ID))

	err = f.svc.Delete(ctx, "missing")
	assert.EqualError(t, err, domain.MsgRecipeNotFound)
	assert.True(t, domain.IsNotFound(err))
}

func TestLifecycleTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	recipe := f.create(t, "Bread")

	published, err := f.svc.Publish(ctx, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPublished, published.Status)

	again, err := f.svc.Publish(ctx, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, published, again)

	archived, err := f.svc.Archive(ctx, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusArchived, archived.Status)

	archivedAgain, err := f.svc.Archive(ctx, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, archived, archivedAgain)

	_, err = f.svc.Publish(ctx, recipe.ID)
	assert.EqualError(t, err, domain.MsgArchivedNoPublish)
	assert.True(t, domain.IsConflict(err))
	stored, err := f.svc.Get(ctx, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusArchived, stored.Status)
}

func TestArchiveFromDraft(t *testing.T) {
	f := newFixture(t)
	recipe := f.create(t, "Bread")
	archived, err := f.svc.Archive(context.Background(), recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusArchived, archived.Status)
}

func TestTransitionsOnMissingRecipe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Publish(ctx, "missing")
	assert.True(t, domain.IsNotFound(err))
	_, err = f.svc.Archive(ctx, "missing")
	assert.True(t, domain.IsNotFound(err))
	_, err = f.svc.Get(ctx, "missing")
	assert.EqualError(t, err, domain.MsgRecipeNotFound)
}

func TestConcurrentTransitionsLeaveConsistentState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	recipe := f.create(t, "Bread")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = f.svc.Publish(ctx, recipe.ID)
		}()
		go func() {
			defer wg.Done()
			_, _ = f.svc.Update(ctx, recipe.ID, UpdateInput{Description: strPtr("x")})
		}()
	}
	wg.Wait()

	stored, err := f.svc.Get(ctx, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPublished, stored.Status)
	assert.Equal(t, "x", stored.Description)
	assert.Equal(t, 0, f.svc.locks.size())
}

func TestEventsArePublished(t *testing.T) {
	bus := EventBus.New()
	f := newFixture(t, WithEventBus(bus))
	ctx := context.Background()

	var (
		mu     sync.Mutex
		topics []string
	)
	for _, topic := range domain.RecipeTopics {
		topic := topic
		require.NoError(t, bus.Subscribe(topic, func(r *domain.Recipe) {
			mu.Lock()
			defer mu.Unlock()
			topics = append(topics, topic)
		}))
	}

	recipe := f.create(t, "Bread")
	_, err := f.svc.Update(ctx, recipe.ID, UpdateInput{Title: strPtr("Loaf")})
	require.NoError(t, err)
	_, err = f.svc.Publish(ctx, recipe.ID)
	require.NoError(t, err)
	_, err = f.svc.Publish(ctx, recipe.ID)
	require.NoError(t, err)
	_, err = f.svc.Archive(ctx, recipe.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, recipe.ID))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		domain.TopicRecipeCreated,
		domain.TopicRecipeUpdated,
		domain.TopicRecipePublished,
		domain.TopicRecipeArchived,
		domain.TopicRecipeDeleted,
	}, topics)
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	k := newKeyedMutex()
	unlockA := k.Lock("a")
	unlockB := k.Lock("b")
	assert.Equal(t, 2, k.size())
	unlockA()
	unlockB()
	assert.Equal(t, 0, k.size())
}
