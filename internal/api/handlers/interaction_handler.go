package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/entities"
)

// InteractionService defines the learning operations used by the handler.
type InteractionService interface {
	RecordInteraction(ctx context.Context, event *entities.InteractionEvent) error
}

// CacheInvalidator drops cached search results after the profile changes.
type CacheInvalidator interface {
	InvalidateCache()
}

// InteractionHandler handles interaction event ingestion.
type InteractionHandler struct {
	service     InteractionService
	invalidator CacheInvalidator
}

// NewInteractionHandler creates a new interaction handler.
func NewInteractionHandler(service InteractionService, invalidator CacheInvalidator) *InteractionHandler {
	return &InteractionHandler{service: service, invalidator: invalidator}
}

type interactionRequest struct {
	EventType string                      `json:"event_type"`
	ProductID string                      `json:"product_id,omitempty"`
	Source    string                      `json:"source,omitempty"`
	Context   entities.InteractionContext `json:"context"`
}

// RecordInteraction handles POST /api/v1/interactions
func (h *InteractionHandler) RecordInteraction(w http.ResponseWriter, r *http.Request) {
	var payload interactionRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	event := &entities.InteractionEvent{
		EventType: entities.EventType(payload.EventType),
		ProductID: payload.ProductID,
		Source:    entities.EventSource(payload.Source),
		Context:   payload.Context,
	}

	if err := h.service.RecordInteraction(r.Context(), event); err != nil {
		respondWithAppError(w, err, "failed to record interaction")
		return
	}

	// Cached results were ranked against the previous profile.
	if h.invalidator != nil {
		h.invalidator.InvalidateCache()
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"status": "recorded",
		"id":     event.ID,
		"weight": event.Weight,
	})
}
