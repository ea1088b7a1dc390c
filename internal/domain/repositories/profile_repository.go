package repositories

import (
	"context"

	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/entities"
)

// ProfileRepository persists the single current user profile row.
type ProfileRepository interface {
	// Get returns the stored profile, or a NOT_FOUND error if none exists yet.
	Get(ctx context.Context) (*entities.UserProfile, error)

	// Upsert stores the profile, replacing any previous row.
	Upsert(ctx context.Context, profile *entities.UserProfile) error
}
