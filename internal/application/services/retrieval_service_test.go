package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/entities"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/repositories"
)

// stubSearchRepo serves canned products and records every query it saw.
type stubSearchRepo struct {
	mu         sync.Mutex
	categories []string
	// respond decides what each Search call returns.
	respond func(category, query string, params repositories.SearchParams) ([]*entities.Product, error)
	calls   []string
}

func (r *stubSearchRepo) Search(ctx context.Context, category, query string, params repositories.SearchParams) ([]*entities.Product, error) {
	r.mu.Lock()
	r.calls = append(r.calls, category+":"+query)
	r.mu.Unlock()
	if r.respond == nil {
		return nil, nil
	}
	return r.respond(category, query, params)
}

func (r *stubSearchRepo) Categories() []string {
	return r.categories
}

func product(id, category string) *entities.Product {
	return &entities.Product{
		ID:         id,
		Name:       id,
		Category:   category,
		Price:      50,
		ImageURL:   "https://cdn.example.com/" + id + ".jpg",
		ProductURL: "https://shop.example.com/" + id,
	}
}

func TestRetrieval_PrimaryWins(t *testing.T) {
	repo := &stubSearchRepo{
		categories: []string{"fashion", "electronics"},
		respond: func(category, query string, params repositories.SearchParams) ([]*entities.Product, error) {
			if category == "fashion" {
				return []*entities.Product{product("p1", "fashion")}, nil
			}
			return nil, nil
		},
	}
	svc := NewRetrievalService(repo, 20, time.Second)

	outcome, err := svc.Retrieve(context.Background(), RetrievalRequest{
		RawQuery:       "red sneakers",
		EffectiveQuery: "red sneakers",
		Categories:     []string{"fashion"},
	})
	require.NoError(t, err)
	assert.Equal(t, "primary", outcome.Strategy)
	assert.Equal(t, 1, outcome.Attempts)
	require.Len(t, outcome.Products, 1)
	assert.Equal(t, "p1", outcome.Products[0].ID)
}

func TestRetrieval_BrandTypeSimplificationRecovers(t *testing.T) {
	min, max := 50.0, 100.0
	repo := &stubSearchRepo{
		categories: []string{"fashion"},
		respond: func(category, query string, params repositories.SearchParams) ([]*entities.Product, error) {
			// The full query with its price filter finds nothing; the
			// stripped brand+type query does.
			if params.PriceMin != nil || params.PriceMax != nil {
				return nil, nil
			}
			if query == "nike sneakers" {
				return []*entities.Product{product("p1", "fashion")}, nil
			}
			return nil, nil
		},
	}
	svc := NewRetrievalService(repo, 20, time.Second)

	outcome, err := svc.Retrieve(context.Background(), RetrievalRequest{
		RawQuery:       "red nike sneakers under $100",
		EffectiveQuery: "red nike sneakers limited edition",
		Constraints: entities.ParsedConstraints{
			PriceRange:      &entities.PriceRange{Min: &min, Max: &max},
			ProductKeywords: []string{"sneakers"},
		},
		Brands:     []string{"nike"},
		Categories: []string{"fashion"},
	})
	require.NoError(t, err)
	assert.Equal(t, "brand_type_simplification", outcome.Strategy)
	assert.Equal(t, 2, outcome.Attempts)
}

func TestRetrieval_BrandRetryFallsBackToFilter(t *testing.T) {
	repo := &stubSearchRepo{
		categories: []string{"fashion"},
		respond: func(category, query string, params repositories.SearchParams) ([]*entities.Product, error) {
			if params.BrandFilter == "nike" {
				return []*entities.Product{product("p1", "fashion")}, nil
			}
			return nil, nil
		},
	}
	svc := NewRetrievalService(repo, 20, time.Second)

	outcome, err := svc.Retrieve(context.Background(), RetrievalRequest{
		RawQuery:       "nike",
		EffectiveQuery: "nike",
		Brands:         []string{"nike"},
		Categories:     []string{"fashion"},
	})
	require.NoError(t, err)
	// Primary and the brand exact-match retry miss; brand-as-filter hits
	// within the same rung.
	assert.Equal(t, "brand_retry", outcome.Strategy)
	assert.Equal(t, 2, outcome.Attempts)
}

func TestRetrieval_LadderTerminatesWhenEverythingIsEmpty(t *testing.T) {
	repo := &stubSearchRepo{categories: []string{"fashion", "electronics"}}
	svc := NewRetrievalService(repo, 20, time.Second)

	min := 10.0
	outcome, err := svc.Retrieve(context.Background(), RetrievalRequest{
		RawQuery:       "brand new nike sneakers wh1000xm5 over ten dollars",
		EffectiveQuery: "nike sneakers wh1000xm5 limited",
		CleanQuery:     "nike sneakers",
		Constraints: entities.ParsedConstraints{
			PriceRange:      &entities.PriceRange{Min: &min},
			ProductKeywords: []string{"sneakers"},
		},
		Brands:         []string{"nike"},
		Categories:     []string{"fashion"},
		ExpansionTerms: []string{"trainers"},
	})
	require.NoError(t, err)
	assert.Equal(t, "exhausted", outcome.Strategy)
	assert.Empty(t, outcome.Products)
	// The primary attempt plus all eight recovery rungs ran exactly once.
	assert.Equal(t, 9, outcome.Attempts)
}

func TestRetrieval_SkipsInapplicableRungs(t *testing.T) {
	repo := &stubSearchRepo{categories: []string{"fashion"}}
	svc := NewRetrievalService(repo, 20, time.Second)

	// No brand, no keywords, no model number, three or fewer terms, raw equals
	// effective, no expansions: only the primary attempt and the final
	// all-category rung apply.
	outcome, err := svc.Retrieve(context.Background(), RetrievalRequest{
		RawQuery:       "obscurething",
		EffectiveQuery: "obscurething",
		CleanQuery:     "obscurething",
		Categories:     []string{"fashion"},
	})
	require.NoError(t, err)
	assert.Equal(t, "exhausted", outcome.Strategy)
	assert.Equal(t, 2, outcome.Attempts)
}

func TestRetrieval_StripModelNumbersRecovers(t *testing.T) {
	repo := &stubSearchRepo{
		categories: []string{"electronics"},
		respond: func(category, query string, params repositories.SearchParams) ([]*entities.Product, error) {
			if query == "sony headphones" {
				return []*entities.Product{product("p1", "electronics")}, nil
			}
			return nil, nil
		},
	}
	svc := NewRetrievalService(repo, 20, time.Second)

	outcome, err := svc.Retrieve(context.Background(), RetrievalRequest{
		RawQuery:       "sony wh1000xm5 headphones",
		EffectiveQuery: "sony wh1000xm5 headphones",
		Categories:     []string{"electronics"},
	})
	require.NoError(t, err)
	assert.Equal(t, "strip_model_numbers", outcome.Strategy)
}

func TestRetrieval_MergesAndDeduplicatesAcrossCategories(t *testing.T) {
	repo := &stubSearchRepo{
		categories: []string{"fashion", "sports"},
		respond: func(category, query string, params repositories.SearchParams) ([]*entities.Product, error) {
			switch category {
			case "fashion":
				return []*entities.Product{product("shared", "fashion"), product("f1", "fashion")}, nil
			case "sports":
				return []*entities.Product{product("shared", "sports"), product("s1", "sports")}, nil
			}
			return nil, nil
		},
	}
	svc := NewRetrievalService(repo, 20, time.Second)

	outcome, err := svc.Retrieve(context.Background(), RetrievalRequest{
		RawQuery:       "running shoes",
		EffectiveQuery: "running shoes",
		Categories:     []string{"fashion", "sports"},
	})
	require.NoError(t, err)
	require.Len(t, outcome.Products, 3)
	assert.Equal(t, "shared", outcome.Products[0].ID)
	assert.Equal(t, "f1", outcome.Products[1].ID)
	assert.Equal(t, "s1", outcome.Products[2].ID)
}

func TestRetrieval_FailingIndexDegrades(t *testing.T) {
	repo := &stubSearchRepo{
		categories: []string{"fashion", "electronics"},
		respond: func(category, query string, params repositories.SearchParams) ([]*entities.Product, error) {
			if category == "electronics" {
				return nil, errors.New("index unavailable")
			}
			return []*entities.Product{product("p1", "fashion")}, nil
		},
	}
	svc := NewRetrievalService(repo, 20, time.Second)

	outcome, err := svc.Retrieve(context.Background(), RetrievalRequest{
		RawQuery:       "charger",
		EffectiveQuery: "charger",
		Categories:     []string{"fashion", "electronics"},
	})
	require.NoError(t, err)
	require.Len(t, outcome.Products, 1)
	assert.Equal(t, "p1", outcome.Products[0].ID)
}

func TestRetrieval_StrictMatchingForModelNumbersAndBrands(t *testing.T) {
	var sawExact bool
	repo := &stubSearchRepo{
		categories: []string{"electronics"},
		respond: func(category, query string, params repositories.SearchParams) ([]*entities.Product, error) {
			sawExact = params.ExactMatch
			return []*entities.Product{product("p1", "electronics")}, nil
		},
	}
	svc := NewRetrievalService(repo, 20, time.Second)

	_, err := svc.Retrieve(context.Background(), RetrievalRequest{
		RawQuery:       "sony wh1000xm5",
		EffectiveQuery: "sony wh1000xm5",
		Categories:     []string{"electronics"},
	})
	require.NoError(t, err)
	assert.True(t, sawExact)

	sawExact = false
	_, err = svc.Retrieve(context.Background(), RetrievalRequest{
		RawQuery:       "sony headphones",
		EffectiveQuery: "sony headphones",
		Brands:         []string{"sony"},
		Categories:     []string{"electronics"},
	})
	require.NoError(t, err)
	assert.True(t, sawExact)
}

func TestInferCategories(t *testing.T) {
	repo := &stubSearchRepo{categories: []string{"fashion", "electronics", "books", "home"}}
	svc := NewRetrievalService(repo, 20, time.Second)

	// Union of keyword hints and the image classifier's guess.
	cats := svc.InferCategories(entities.ParsedConstraints{ProductKeywords: []string{"laptop"}}, "fashion", nil)
	assert.Equal(t, []string{"electronics", "fashion"}, cats)

	cats = svc.InferCategories(entities.ParsedConstraints{}, "fashion", nil)
	assert.Equal(t, []string{"fashion"}, cats)

	// No signal searches everything.
	cats = svc.InferCategories(entities.ParsedConstraints{}, "", entities.NewUserProfile())
	assert.Equal(t, repo.categories, cats)

	// Learned affinity decides which index is searched first.
	profile := entities.NewUserProfile()
	profile.CategoryScores["fashion"] = 0.9
	profile.CategoryScores["electronics"] = 0.2
	cats = svc.InferCategories(entities.ParsedConstraints{ProductKeywords: []string{"laptop", "shoes"}}, "", profile)
	assert.Equal(t, []string{"fashion", "electronics"}, cats)
}
