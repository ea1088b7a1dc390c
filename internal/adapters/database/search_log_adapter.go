package database

import (
	"context"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"

	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/entities"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/repositories"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/infrastructure/clients/postgres"
	apperrors "github.com/goodaymmm/shopping-for-algolia-personalized-sub000/pkg/errors"
)

// SearchLogAdapter implements search analytics persistence in Postgres.
type SearchLogAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewSearchLogAdapter creates a new search log adapter.
func NewSearchLogAdapter(client *postgres.Client) repositories.SearchLogRepository {
	return &SearchLogAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Append stores one search log row.
func (a *SearchLogAdapter) Append(ctx context.Context, entry *entities.SearchLogEntry) error {
	if entry == nil {
		return apperrors.NewValidationError("search log entry is nil")
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	record := goqu.Record{
		"id":              entry.ID,
		"query":           entry.Query,
		"effective_query": entry.EffectiveQuery,
		"categories":      strings.Join(entry.Categories, ","),
		"result_count":    entry.ResultCount,
		"latency_ms":      entry.LatencyMs,
		"image_keywords":  strings.Join(entry.ImageKeywords, ","),
		"image_category":  entry.ImageCategory,
		"session_id":      entry.SessionID,
		"created_at":      entry.CreatedAt,
	}

	query, args, err := a.db.Insert("search_log").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build search log insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to append search log entry", err)
	}

	return nil
}

// ZeroResultQueries returns recent searches that produced no results.
func (a *SearchLogAdapter) ZeroResultQueries(ctx context.Context, limit int) ([]*entities.SearchLogEntry, error) {
	return a.list(ctx, limit, goqu.C("result_count").Eq(0))
}

// RecentSuccessful returns recent searches that produced at least one result.
func (a *SearchLogAdapter) RecentSuccessful(ctx context.Context, limit int) ([]*entities.SearchLogEntry, error) {
	return a.list(ctx, limit, goqu.C("result_count").Gt(0))
}

func (a *SearchLogAdapter) list(ctx context.Context, limit int, condition goqu.Expression) ([]*entities.SearchLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	query, args, err := a.db.From("search_log").
		Select("id", "query", "effective_query", "categories", "result_count", "latency_ms", "image_keywords", "image_category", "session_id", "created_at").
		Where(condition).
		Order(goqu.I("created_at").Desc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build search log query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query search log", err)
	}
	defer rows.Close()

	var entries []*entities.SearchLogEntry
	for rows.Next() {
		e := &entities.SearchLogEntry{}
		var categories, imageKeywords string
		if err := rows.Scan(&e.ID, &e.Query, &e.EffectiveQuery, &categories, &e.ResultCount, &e.LatencyMs, &imageKeywords, &e.ImageCategory, &e.SessionID, &e.CreatedAt); err != nil {
			return nil, apperrors.NewInternalError("failed to scan search log entry", err)
		}
		e.Categories = splitNonEmpty(categories)
		e.ImageKeywords = splitNonEmpty(imageKeywords)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func splitNonEmpty(joined string) []string {
	if joined == "" {
		return nil
	}
	return strings.Split(joined, ",")
}
