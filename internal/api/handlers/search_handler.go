package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/application/services"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/entities"
	apperrors "github.com/goodaymmm/shopping-for-algolia-personalized-sub000/pkg/errors"
)

const maxImageBytes = 8 << 20

// SearchService defines the search operations used by the handler.
type SearchService interface {
	Search(ctx context.Context, req services.SearchRequest) (*entities.SearchResult, error)
}

// SearchAnalytics defines the analytics operations used by the handler.
type SearchAnalytics interface {
	ZeroResultQueries(ctx context.Context, limit int) ([]*entities.SearchLogEntry, error)
}

// SearchHandler handles search requests.
type SearchHandler struct {
	service   SearchService
	analytics SearchAnalytics
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(service SearchService, analytics SearchAnalytics) *SearchHandler {
	return &SearchHandler{service: service, analytics: analytics}
}

type searchRequest struct {
	Query        string `json:"query"`
	ImageBase64  string `json:"image_base64,omitempty"`
	DiscoveryPct *int   `json:"discovery_pct,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
}

// Search handles POST /api/v1/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var payload searchRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	var imageData []byte
	if payload.ImageBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(stripDataURLPrefix(payload.ImageBase64))
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "image_base64 is not valid base64")
			return
		}
		if len(decoded) > maxImageBytes {
			respondWithError(w, http.StatusBadRequest, "image exceeds the size limit")
			return
		}
		imageData = decoded
	}

	if payload.DiscoveryPct != nil && (*payload.DiscoveryPct < 0 || *payload.DiscoveryPct > 100) {
		respondWithError(w, http.StatusBadRequest, "discovery_pct must be between 0 and 100")
		return
	}

	result, err := h.service.Search(r.Context(), services.SearchRequest{
		Query:        payload.Query,
		ImageData:    imageData,
		DiscoveryPct: payload.DiscoveryPct,
		SessionID:    strings.TrimSpace(payload.SessionID),
	})
	if err != nil {
		respondWithAppError(w, err, "search failed")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// GetZeroResultQueries handles GET /api/v1/search/zero-results
func (h *SearchHandler) GetZeroResultQueries(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			respondWithError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = parsed
	}

	entries, err := h.analytics.ZeroResultQueries(r.Context(), limit)
	if err != nil {
		respondWithAppError(w, err, "failed to load zero-result queries")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"queries": entries,
		"count":   len(entries),
	})
}

func stripDataURLPrefix(s string) string {
	if i := strings.Index(s, ","); i >= 0 && strings.HasPrefix(s, "data:") {
		return s[i+1:]
	}
	return s
}

// Helper functions
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithAppError maps the error taxonomy onto HTTP status codes without
// leaking internals.
func respondWithAppError(w http.ResponseWriter, err error, fallback string) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case apperrors.ErrorTypeValidation:
			respondWithError(w, http.StatusBadRequest, appErr.Message)
			return
		case apperrors.ErrorTypeNotFound:
			respondWithError(w, http.StatusNotFound, appErr.Message)
			return
		case apperrors.ErrorTypeExternal:
			respondWithError(w, http.StatusBadGateway, appErr.Message)
			return
		}
	}
	respondWithError(w, http.StatusInternalServerError, fallback)
}
