package repositories

import (
	"context"

	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/entities"
)

// SearchLogRepository persists one row per search for analytics and for
// history-based query enrichment.
type SearchLogRepository interface {
	Append(ctx context.Context, entry *entities.SearchLogEntry) error

	// ZeroResultQueries returns recent searches that produced no results.
	ZeroResultQueries(ctx context.Context, limit int) ([]*entities.SearchLogEntry, error)

	// RecentSuccessful returns recent searches that produced at least one
	// result, newest first.
	RecentSuccessful(ctx context.Context, limit int) ([]*entities.SearchLogEntry, error)
}
