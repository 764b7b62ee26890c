package app

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/talkincode/cookbook/internal/domain"
	"github.com/talkincode/cookbook/pkg/metrics"
	"go.uber.org/zap"
)

// subscribeEvents counts every recipe lifecycle event, e.g. recipe:published
// feeds the recipe_published_total series.
func (a *Application) subscribeEvents() error {
	for _, topic := range domain.RecipeTopics {
		counter := strings.ReplaceAll(topic, ":", "_") + "_total"
		topic := topic
		handler := func(recipe *domain.Recipe) {
			metrics.Incr(counter)
			zap.L().Debug("recipe event",
				zap.String("namespace", "event"),
				zap.String("topic", topic),
				zap.String("id", recipe.ID))
		}
		if err := a.bus.SubscribeAsync(topic, handler, false); err != nil {
			return errors.Wrapf(err, "subscribe %s", topic)
		}
	}
	return nil
}
