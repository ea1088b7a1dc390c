package handlers

import (
	"context"
	"net/http"

	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/entities"
)

// ProfileService defines the profile operations used by the handler.
type ProfileService interface {
	GetProfile(ctx context.Context) (*entities.UserProfile, error)
	ResetLearningData(ctx context.Context) error
}

// ProfileHandler handles profile inspection and the learning-data reset.
type ProfileHandler struct {
	service     ProfileService
	invalidator CacheInvalidator
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(service ProfileService, invalidator CacheInvalidator) *ProfileHandler {
	return &ProfileHandler{service: service, invalidator: invalidator}
}

// GetProfile handles GET /api/v1/profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.GetProfile(r.Context())
	if err != nil {
		respondWithAppError(w, err, "failed to load profile")
		return
	}

	respondWithJSON(w, http.StatusOK, profile)
}

// ResetLearningData handles DELETE /api/v1/profile/learning-data
func (h *ProfileHandler) ResetLearningData(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ResetLearningData(r.Context()); err != nil {
		respondWithAppError(w, err, "failed to reset learning data")
		return
	}

	if h.invalidator != nil {
		h.invalidator.InvalidateCache()
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"status": "reset",
	})
}
