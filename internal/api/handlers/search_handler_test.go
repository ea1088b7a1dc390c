package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/application/services"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/entities"
	apperrors "github.com/goodaymmm/shopping-for-algolia-personalized-sub000/pkg/errors"
)

type fakeSearchService struct {
	lastRequest services.SearchRequest
	result      *entities.SearchResult
	err         error
}

func (f *fakeSearchService) Search(ctx context.Context, req services.SearchRequest) (*entities.SearchResult, error) {
	f.lastRequest = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeAnalytics struct {
	entries []*entities.SearchLogEntry
	err     error
}

func (f *fakeAnalytics) ZeroResultQueries(ctx context.Context, limit int) ([]*entities.SearchLogEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.entries) {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}

func TestSearchHandler_Search(t *testing.T) {
	svc := &fakeSearchService{result: &entities.SearchResult{
		Products:         []entities.RankedProduct{{Product: &entities.Product{ID: "p1", Name: "Sneakers"}, Score: 0.5}},
		TotalAfterFilter: 1,
	}}
	handler := NewSearchHandler(svc, &fakeAnalytics{})

	body, _ := json.Marshal(map[string]interface{}{"query": "red sneakers", "session_id": " s1 "})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Search(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "red sneakers", svc.lastRequest.Query)
	assert.Equal(t, "s1", svc.lastRequest.SessionID)

	var result entities.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Products, 1)
	assert.Equal(t, "p1", result.Products[0].Product.ID)
}

func TestSearchHandler_InvalidJSON(t *testing.T) {
	handler := NewSearchHandler(&fakeSearchService{}, &fakeAnalytics{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()

	handler.Search(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchHandler_DecodesDataURLImage(t *testing.T) {
	svc := &fakeSearchService{result: &entities.SearchResult{}}
	handler := NewSearchHandler(svc, &fakeAnalytics{})

	body, _ := json.Marshal(map[string]interface{}{
		"image_base64": "data:image/jpeg;base64,/9j/AA==",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Search(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff, 0x00}, svc.lastRequest.ImageData)
}

func TestSearchHandler_RejectsBadBase64(t *testing.T) {
	handler := NewSearchHandler(&fakeSearchService{}, &fakeAnalytics{})

	body, _ := json.Marshal(map[string]interface{}{"image_base64": "!!not base64!!"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Search(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchHandler_RejectsDiscoveryPctOutOfRange(t *testing.T) {
	handler := NewSearchHandler(&fakeSearchService{}, &fakeAnalytics{})

	body, _ := json.Marshal(map[string]interface{}{"query": "x", "discovery_pct": 120})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Search(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchHandler_MapsValidationError(t *testing.T) {
	svc := &fakeSearchService{err: apperrors.NewValidationError("query or image is required")}
	handler := NewSearchHandler(svc, &fakeAnalytics{})

	body, _ := json.Marshal(map[string]interface{}{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Search(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "query or image is required")
}

func TestSearchHandler_ZeroResultQueries(t *testing.T) {
	analytics := &fakeAnalytics{entries: []*entities.SearchLogEntry{
		{Query: "quantum skateboard", ResultCount: 0},
	}}
	handler := NewSearchHandler(&fakeSearchService{}, analytics)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search/zero-results", nil)
	rec := httptest.NewRecorder()

	handler.GetZeroResultQueries(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "quantum skateboard")
}

func TestSearchHandler_ZeroResultQueriesBadLimit(t *testing.T) {
	handler := NewSearchHandler(&fakeSearchService{}, &fakeAnalytics{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search/zero-results?limit=-3", nil)
	rec := httptest.NewRecorder()

	handler.GetZeroResultQueries(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
