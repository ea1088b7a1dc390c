package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/entities"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/repositories"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/infrastructure/clients/postgres"
	apperrors "github.com/goodaymmm/shopping-for-algolia-personalized-sub000/pkg/errors"
)

// Single-user desktop assistant: the profile table holds one row.
const profileRowID = "default"

// ProfileAdapter implements user profile persistence in Postgres.
type ProfileAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewProfileAdapter creates a new profile adapter.
func NewProfileAdapter(client *postgres.Client) repositories.ProfileRepository {
	return &ProfileAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Get returns the stored profile, or NOT_FOUND if none exists yet.
func (a *ProfileAdapter) Get(ctx context.Context) (*entities.UserProfile, error) {
	query, args, err := a.db.From("user_profile").
		Select("profile").
		Where(goqu.C("id").Eq(profileRowID)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build profile query", err)
	}

	var profileJSON string
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(&profileJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("user profile not found")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get user profile", err)
	}

	profile := entities.NewUserProfile()
	if err := json.Unmarshal([]byte(profileJSON), profile); err != nil {
		return nil, apperrors.NewInternalError("failed to decode user profile", err)
	}

	return profile, nil
}

// Upsert stores the profile, replacing any previous row.
func (a *ProfileAdapter) Upsert(ctx context.Context, profile *entities.UserProfile) error {
	if profile == nil {
		return apperrors.NewValidationError("profile is nil")
	}

	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return apperrors.NewInternalError("failed to encode user profile", err)
	}

	record := goqu.Record{
		"id":         profileRowID,
		"profile":    string(profileJSON),
		"updated_at": time.Now(),
	}

	query, args, err := a.db.Insert("user_profile").
		Rows(record).
		OnConflict(goqu.DoUpdate("id", record)).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build profile upsert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to upsert user profile", err)
	}

	return nil
}
