package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/entities"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/repositories"
)

const analyticsWriteTimeout = 5 * time.Second

// SearchAnalyticsService records one log row per search and serves the
// zero-result report used to spot vocabulary gaps in the catalog.
type SearchAnalyticsService struct {
	searchLogs repositories.SearchLogRepository
}

// NewSearchAnalyticsService creates a new search analytics service.
func NewSearchAnalyticsService(searchLogs repositories.SearchLogRepository) *SearchAnalyticsService {
	return &SearchAnalyticsService{searchLogs: searchLogs}
}

// LogSearch records the entry asynchronously. Logging must never add latency
// to or fail a search, so the write runs on its own goroutine with a fresh
// timeout instead of the request context.
func (s *SearchAnalyticsService) LogSearch(entry *entities.SearchLogEntry) {
	if entry == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), analyticsWriteTimeout)
		defer cancel()
		if err := s.searchLogs.Append(ctx, entry); err != nil {
			log.Warn().Err(err).Str("query", entry.Query).Msg("failed to log search")
		}
	}()
}

// ZeroResultQueries returns recent searches that found nothing.
func (s *SearchAnalyticsService) ZeroResultQueries(ctx context.Context, limit int) ([]*entities.SearchLogEntry, error) {
	return s.searchLogs.ZeroResultQueries(ctx, limit)
}
