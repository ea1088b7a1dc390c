package services

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/adapters/providers/vision"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/entities"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/repositories"
	apperrors "github.com/goodaymmm/shopping-for-algolia-personalized-sub000/pkg/errors"
)

type orchestratorFixture struct {
	orchestrator *SearchOrchestrator
	searchRepo   *stubSearchRepo
	interactions *memoryInteractionRepo
	profiles     *memoryProfileRepo
	searchLogs   *memorySearchLogRepo
}

func newOrchestratorFixture(searchRepo *stubSearchRepo) *orchestratorFixture {
	interactions := &memoryInteractionRepo{}
	profiles := &memoryProfileRepo{}
	searchLogs := &memorySearchLogRepo{}

	parser := NewConstraintParser()
	personalization := NewPersonalizationService(interactions, profiles, 1000)
	retrieval := NewRetrievalService(searchRepo, 20, time.Second)
	discovery := NewDiscoveryService(searchRepo)
	discovery.rng = rand.New(rand.NewSource(7))

	orchestrator := NewSearchOrchestrator(
		parser,
		personalization,
		retrieval,
		discovery,
		NewTermExpansionService(searchLogs),
		NewSearchAnalyticsService(searchLogs),
		vision.NewMockImageProvider(),
		NewResultCache(5*time.Minute),
		0,
	)

	return &orchestratorFixture{
		orchestrator: orchestrator,
		searchRepo:   searchRepo,
		interactions: interactions,
		profiles:     profiles,
		searchLogs:   searchLogs,
	}
}

// catalogItem builds a product with well-formed URLs, as the search backend
// would return them.
func catalogItem(id, name, category string, price float64) *entities.Product {
	return &entities.Product{
		ID:         id,
		Name:       name,
		Category:   category,
		Price:      price,
		ImageURL:   "https://cdn.example.com/" + id + ".jpg",
		ProductURL: "https://shop.example.com/products/" + id,
	}
}

func catalogRepo(products ...*entities.Product) *stubSearchRepo {
	return &stubSearchRepo{
		categories: []string{"fashion", "electronics"},
		respond: func(category, query string, params repositories.SearchParams) ([]*entities.Product, error) {
			var hits []*entities.Product
			for _, p := range products {
				if p.Category != category {
					continue
				}
				if params.PriceMin != nil && p.Price < *params.PriceMin {
					continue
				}
				if params.PriceMax != nil && p.Price > *params.PriceMax {
					continue
				}
				hits = append(hits, p)
			}
			return hits, nil
		},
	}
}

func TestSearch_RequiresQueryOrImage(t *testing.T) {
	fx := newOrchestratorFixture(catalogRepo())

	_, err := fx.orchestrator.Search(context.Background(), SearchRequest{})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
}

func TestSearch_TextPipeline(t *testing.T) {
	fx := newOrchestratorFixture(catalogRepo(
		catalogItem("p1", "Red Canvas Sneakers", "fashion", 60),
		catalogItem("p2", "Blue Running Sneakers", "fashion", 90),
	))

	result, err := fx.orchestrator.Search(context.Background(), SearchRequest{Query: "red sneakers"})
	require.NoError(t, err)

	require.Len(t, result.Products, 1)
	assert.Equal(t, "p1", result.Products[0].Product.ID)
	assert.Equal(t, 2, result.TotalBeforeFilter)
	assert.Equal(t, 1, result.TotalAfterFilter)
	assert.Equal(t, 1, result.FilterCounts.Color)
	require.NotNil(t, result.AppliedConstraints)
	assert.Equal(t, []string{"red"}, result.AppliedConstraints.Colors)
}

func TestSearch_PriceFilter(t *testing.T) {
	// The catalog stub applies price filters itself, so retrieval already
	// excludes p2; the p1 hit passes the in-pipeline price stage too.
	fx := newOrchestratorFixture(catalogRepo(
		catalogItem("p1", "Basic Sneakers", "fashion", 60),
		catalogItem("p2", "Premium Sneakers", "fashion", 300),
	))

	result, err := fx.orchestrator.Search(context.Background(), SearchRequest{Query: "sneakers under $100"})
	require.NoError(t, err)

	require.Len(t, result.Products, 1)
	assert.Equal(t, "p1", result.Products[0].Product.ID)
}

func TestSearch_DropsProductsWithBrokenURLs(t *testing.T) {
	local := catalogItem("p2", "Local Sneakers", "fashion", 60)
	local.ProductURL = "http://localhost:3000/products/p2"
	stub := catalogItem("p3", "Stub Sneakers", "fashion", 60)
	stub.ImageURL = "https://cdn.example.com/placeholder.jpg"
	bare := catalogItem("p4", "Bare Sneakers", "fashion", 60)
	bare.ImageURL = ""

	fx := newOrchestratorFixture(catalogRepo(
		catalogItem("p1", "Good Sneakers", "fashion", 60),
		local, stub, bare,
	))

	result, err := fx.orchestrator.Search(context.Background(), SearchRequest{Query: "sneakers"})
	require.NoError(t, err)

	require.Len(t, result.Products, 1)
	assert.Equal(t, "p1", result.Products[0].Product.ID)
	assert.Equal(t, 3, result.FilterCounts.Validation)
}

func TestSearch_FilterToZeroReturnsClosestMatches(t *testing.T) {
	fx := newOrchestratorFixture(catalogRepo(
		catalogItem("p1", "Blue Sneakers", "fashion", 60),
	))

	result, err := fx.orchestrator.Search(context.Background(), SearchRequest{Query: "purple sneakers"})
	require.NoError(t, err)

	require.Len(t, result.Products, 1)
	assert.Equal(t, "p1", result.Products[0].Product.ID)
	assert.Contains(t, result.Feedback, "closest matches")
}

func TestSearch_CacheHitSkipsBackend(t *testing.T) {
	fx := newOrchestratorFixture(catalogRepo(
		catalogItem("p1", "Sneakers", "fashion", 60),
	))

	first, err := fx.orchestrator.Search(context.Background(), SearchRequest{Query: "sneakers"})
	require.NoError(t, err)

	fx.searchRepo.mu.Lock()
	callsAfterFirst := len(fx.searchRepo.calls)
	fx.searchRepo.mu.Unlock()

	second, err := fx.orchestrator.Search(context.Background(), SearchRequest{Query: "sneakers"})
	require.NoError(t, err)
	assert.Same(t, first, second)

	fx.searchRepo.mu.Lock()
	defer fx.searchRepo.mu.Unlock()
	assert.Equal(t, callsAfterFirst, len(fx.searchRepo.calls))
}

func TestSearch_InvalidateCacheForcesRecompute(t *testing.T) {
	fx := newOrchestratorFixture(catalogRepo(
		catalogItem("p1", "Sneakers", "fashion", 60),
	))

	first, err := fx.orchestrator.Search(context.Background(), SearchRequest{Query: "sneakers"})
	require.NoError(t, err)

	fx.orchestrator.InvalidateCache()

	second, err := fx.orchestrator.Search(context.Background(), SearchRequest{Query: "sneakers"})
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestSearch_RerankGate(t *testing.T) {
	acme := catalogItem("p1", "Acme Sneakers", "fashion", 60)
	acme.Brand = "Acme"
	nike := catalogItem("p2", "Nike Sneakers", "fashion", 60)
	nike.Brand = "Nike"
	products := []*entities.Product{acme, nike}

	// Thin profile: backend order stands even though nike has affinity.
	fx := newOrchestratorFixture(catalogRepo(products...))
	thin := entities.NewUserProfile()
	thin.TotalEvents = 1
	thin.ConfidenceLevel = 0.1
	thin.BrandAffinity["nike"] = 1
	require.NoError(t, fx.profiles.Upsert(context.Background(), thin))

	result, err := fx.orchestrator.Search(context.Background(), SearchRequest{Query: "sneakers"})
	require.NoError(t, err)
	require.Len(t, result.Products, 2)
	assert.Equal(t, "p1", result.Products[0].Product.ID)

	// Confident profile: the learned brand moves up.
	fx = newOrchestratorFixture(catalogRepo(products...))
	confident := entities.NewUserProfile()
	confident.TotalEvents = 20
	confident.ConfidenceLevel = 1.0
	confident.BrandAffinity["nike"] = 3
	require.NoError(t, fx.profiles.Upsert(context.Background(), confident))

	result, err = fx.orchestrator.Search(context.Background(), SearchRequest{Query: "sneakers"})
	require.NoError(t, err)
	require.Len(t, result.Products, 2)
	assert.Equal(t, "p2", result.Products[0].Product.ID)
	assert.Greater(t, result.Products[0].Score, result.Products[1].Score)
}

func TestSearch_DiscoveryInjection(t *testing.T) {
	var products []*entities.Product
	for i := 0; i < 10; i++ {
		products = append(products, catalogItem("f"+string(rune('0'+i)), "Sneakers", "fashion", 60))
	}
	products = append(products, catalogItem("e1", "Headphones", "electronics", 80))

	fx := newOrchestratorFixture(catalogRepo(products...))
	pct := 10
	result, err := fx.orchestrator.Search(context.Background(), SearchRequest{Query: "sneakers", DiscoveryPct: &pct})
	require.NoError(t, err)

	require.Len(t, result.Products, 10)
	var discoveries int
	for _, rp := range result.Products {
		if rp.IsDiscovery {
			discoveries++
			assert.Equal(t, "e1", rp.Product.ID)
			assert.Equal(t, entities.DiscoveryDifferentCategory, rp.DiscoveryReason)
		}
	}
	assert.Equal(t, 1, discoveries)
}

func TestSearch_ImageOnlyUsesVisionKeywords(t *testing.T) {
	fx := newOrchestratorFixture(catalogRepo(
		catalogItem("p1", "White Leather Sneakers", "fashion", 60),
	))

	result, err := fx.orchestrator.Search(context.Background(), SearchRequest{ImageData: []byte{0xff, 0xd8}})
	require.NoError(t, err)

	require.NotNil(t, result.ImageAnalysis)
	assert.Equal(t, []string{"white", "sneakers"}, result.ImageAnalysis.SearchKeywords)
	require.Len(t, result.Products, 1)

	// The vision keywords became the query.
	fx.searchRepo.mu.Lock()
	defer fx.searchRepo.mu.Unlock()
	assert.Contains(t, fx.searchRepo.calls, "fashion:white sneakers")
}

func TestSearch_ImageWithoutVisionDegradesToText(t *testing.T) {
	fx := newOrchestratorFixture(catalogRepo(
		catalogItem("p1", "Sneakers", "fashion", 60),
	))
	fx.orchestrator.vision = nil

	result, err := fx.orchestrator.Search(context.Background(), SearchRequest{
		Query:     "sneakers",
		ImageData: []byte{0xff, 0xd8},
	})
	require.NoError(t, err)
	assert.Nil(t, result.ImageAnalysis)
	assert.Contains(t, result.Feedback, "image analysis")
	assert.Len(t, result.Products, 1)
}

func TestSearch_LogsSearchEntry(t *testing.T) {
	fx := newOrchestratorFixture(catalogRepo(
		catalogItem("p1", "Sneakers", "fashion", 60),
	))

	_, err := fx.orchestrator.Search(context.Background(), SearchRequest{Query: "sneakers", SessionID: "s1"})
	require.NoError(t, err)

	// Logging is fire-and-forget; wait for the write to land.
	require.Eventually(t, func() bool {
		return len(fx.searchLogs.snapshot()) == 1
	}, time.Second, 10*time.Millisecond)

	entry := fx.searchLogs.snapshot()[0]
	assert.Equal(t, "sneakers", entry.Query)
	assert.Equal(t, "sneakers", entry.EffectiveQuery)
	assert.Equal(t, 1, entry.ResultCount)
	assert.Equal(t, "s1", entry.SessionID)
	assert.GreaterOrEqual(t, entry.LatencyMs, int64(0))
}

func TestFilterProducts_ComparisonLanguageRelaxesStyleStage(t *testing.T) {
	parser := NewConstraintParser()
	loafers := catalogItem("p1", "Leather Loafers", "fashion", 80)

	// "similar" turns the style constraint into a wildcard: a product with no
	// style match stays in.
	constraints := parser.Parse("similar casual shoes")
	require.Equal(t, []string{"casual"}, constraints.Styles)
	require.Contains(t, constraints.OtherConstraints, "similar-style")

	kept, counts := FilterProducts([]*entities.Product{loafers}, constraints)
	require.Len(t, kept, 1)
	assert.Zero(t, counts.Style)

	// Without comparison language the style stage drops it.
	kept, counts = FilterProducts([]*entities.Product{loafers}, parser.Parse("casual shoes"))
	assert.Empty(t, kept)
	assert.Equal(t, 1, counts.Style)
}

func TestSearch_FollowUpFiltersPreviousResults(t *testing.T) {
	fx := newOrchestratorFixture(catalogRepo(
		catalogItem("p1", "Basic Sneakers", "fashion", 40),
		catalogItem("p2", "Premium Sneakers", "fashion", 200),
	))

	_, err := fx.orchestrator.Search(context.Background(), SearchRequest{Query: "sneakers", SessionID: "s1"})
	require.NoError(t, err)

	fx.searchRepo.mu.Lock()
	callsAfterFirst := len(fx.searchRepo.calls)
	fx.searchRepo.mu.Unlock()

	result, err := fx.orchestrator.Search(context.Background(), SearchRequest{Query: "under $50", SessionID: "s1"})
	require.NoError(t, err)

	// The refinement filtered the cached result set; no new retrieval ran.
	require.Len(t, result.Products, 1)
	assert.Equal(t, "p1", result.Products[0].Product.ID)
	assert.Equal(t, 2, result.TotalBeforeFilter)

	fx.searchRepo.mu.Lock()
	defer fx.searchRepo.mu.Unlock()
	assert.Equal(t, callsAfterFirst, len(fx.searchRepo.calls))
}

func TestSearch_FollowUpWithoutSessionHistoryRunsFreshSearch(t *testing.T) {
	fx := newOrchestratorFixture(catalogRepo(
		catalogItem("p1", "Basic Sneakers", "fashion", 40),
	))

	// "under $50" reads like a refinement but this session never searched.
	result, err := fx.orchestrator.Search(context.Background(), SearchRequest{Query: "sneakers under $50", SessionID: "fresh"})
	require.NoError(t, err)

	require.Len(t, result.Products, 1)
	assert.Equal(t, "p1", result.Products[0].Product.ID)
}
