package database

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"

	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/entities"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/repositories"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/infrastructure/clients/postgres"
	apperrors "github.com/goodaymmm/shopping-for-algolia-personalized-sub000/pkg/errors"
)

// InteractionAdapter implements the append-only interaction event log in Postgres.
type InteractionAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewInteractionAdapter creates a new interaction adapter.
func NewInteractionAdapter(client *postgres.Client) repositories.InteractionRepository {
	return &InteractionAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Append durably stores one interaction event.
func (a *InteractionAdapter) Append(ctx context.Context, event *entities.InteractionEvent) error {
	if event == nil {
		return apperrors.NewValidationError("interaction event is nil")
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	contextJSON, err := json.Marshal(event.Context)
	if err != nil {
		return apperrors.NewInternalError("failed to encode event context", err)
	}

	record := goqu.Record{
		"id":         event.ID,
		"event_type": string(event.EventType),
		"product_id": event.ProductID,
		"timestamp":  event.Timestamp,
		"context":    string(contextJSON),
		"weight":     event.Weight,
		"source":     string(event.Source),
	}

	query, args, err := a.db.Insert("interaction_events").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build event insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to append interaction event", err)
	}

	return nil
}

// Recent returns the most recent events, newest first, up to limit. Rows with
// an unparseable context column are skipped rather than aborting the read.
func (a *InteractionAdapter) Recent(ctx context.Context, limit int) ([]*entities.InteractionEvent, error) {
	if limit <= 0 {
		limit = 1000
	}

	query, args, err := a.db.From("interaction_events").
		Select("id", "event_type", "product_id", "timestamp", "context", "weight", "source").
		Order(goqu.I("timestamp").Desc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build events query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query interaction events", err)
	}
	defer rows.Close()

	var events []*entities.InteractionEvent
	for rows.Next() {
		e := &entities.InteractionEvent{}
		var contextJSON string
		if err := rows.Scan(&e.ID, &e.EventType, &e.ProductID, &e.Timestamp, &contextJSON, &e.Weight, &e.Source); err != nil {
			return nil, apperrors.NewInternalError("failed to scan interaction event", err)
		}
		if contextJSON != "" {
			if err := json.Unmarshal([]byte(contextJSON), &e.Context); err != nil {
				log.Printf("Warning: skipping event %s with malformed context: %v", e.ID, err)
				continue
			}
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

// Truncate removes all stored events. Used only by the learning-data reset.
func (a *InteractionAdapter) Truncate(ctx context.Context) error {
	query, args, err := a.db.Delete("interaction_events").ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build truncate query", err)
	}
	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to truncate interaction events", err)
	}
	return nil
}
