package repositories

import (
	"context"

	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/entities"
)

// InteractionRepository persists the append-only interaction event log.
type InteractionRepository interface {
	// Append durably stores one event. Events are never mutated afterwards.
	Append(ctx context.Context, event *entities.InteractionEvent) error

	// Recent returns the most recent events, newest first, up to limit.
	Recent(ctx context.Context, limit int) ([]*entities.InteractionEvent, error)

	// Truncate removes all events. Only used by the explicit learning-data reset.
	Truncate(ctx context.Context) error
}
