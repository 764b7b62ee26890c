package domain

// Lifecycle topics published on the event bus. Handlers receive a *Recipe
// snapshot (for deletes, the record as it was before removal).
const (
	TopicRecipeCreated   = "recipe:created"
	TopicRecipeUpdated   = "recipe:updated"
	TopicRecipePublished = "recipe:published"
	TopicRecipeArchived  = "recipe:archived"
	TopicRecipeDeleted   = "recipe:deleted"
)

var RecipeTopics = []string{
	TopicRecipeCreated,
	TopicRecipeUpdated,
	TopicRecipePublished,
	TopicRecipeArchived,
	TopicRecipeDeleted,
}
