package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/entities"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/repositories"
)

// keywordCategories maps product-type keywords to the category index that
// carries them.
var keywordCategories = map[string]string{
	"shoes": "fashion", "sneakers": "fashion", "boots": "fashion",
	"sandals": "fashion", "heels": "fashion", "shirt": "fashion",
	"t-shirt": "fashion", "tshirt": "fashion", "dress": "fashion",
	"skirt": "fashion", "jacket": "fashion", "coat": "fashion",
	"jeans": "fashion", "pants": "fashion", "shorts": "fashion",
	"sweater": "fashion", "hoodie": "fashion", "bag": "fashion",
	"backpack": "fashion", "watch": "fashion", "sunglasses": "fashion",
	"hat": "fashion", "scarf": "fashion",
	"laptop": "electronics", "phone": "electronics", "smartphone": "electronics",
	"headphones": "electronics", "earbuds": "electronics", "camera": "electronics",
	"tablet": "electronics", "speaker": "electronics", "monitor": "electronics",
	"keyboard": "electronics", "mouse": "electronics", "charger": "electronics",
}

const firstKeywordsLimit = 3

// RetrievalRequest is one resolved retrieval: the query to run, the raw query
// it came from, the structured constraints it carried and the category indices
// to fan out to.
type RetrievalRequest struct {
	RawQuery       string
	EffectiveQuery string
	CleanQuery     string
	Constraints    entities.ParsedConstraints
	Brands         []string
	Categories     []string
	ExpansionTerms []string
}

// RetrievalOutcome reports what retrieval produced: the merged products, the
// name of the strategy that yielded them and how many strategies ran.
type RetrievalOutcome struct {
	Products []*entities.Product
	Strategy string
	Attempts int
}

// searchAttempt is one concrete backend query: a rung may issue more than one.
type searchAttempt struct {
	query      string
	params     repositories.SearchParams
	categories []string
}

// fallbackStep is one rung of the recovery ladder. A rung that does not apply
// to the request returns no attempts and is skipped without counting.
type fallbackStep struct {
	name  string
	apply func(req RetrievalRequest) []searchAttempt
}

// RetrievalService fans a query out across the per-category search indices.
// When the primary retrieval comes back empty it walks a fixed recovery
// ladder, strictly ordered, stopping at the first rung that yields products.
// The ladder always terminates: it is a finite list and each rung runs at most
// once.
type RetrievalService struct {
	search        repositories.ProductSearchRepository
	hitsPerPage   int
	branchTimeout time.Duration
	steps         []fallbackStep
}

// NewRetrievalService creates a new retrieval service.
func NewRetrievalService(search repositories.ProductSearchRepository, hitsPerPage int, branchTimeout time.Duration) *RetrievalService {
	if hitsPerPage <= 0 {
		hitsPerPage = 20
	}
	if branchTimeout <= 0 {
		branchTimeout = 10 * time.Second
	}
	s := &RetrievalService{
		search:        search,
		hitsPerPage:   hitsPerPage,
		branchTimeout: branchTimeout,
	}
	s.steps = s.buildLadder()
	return s
}

// InferCategories resolves the category indices to search: the union of the
// keyword-table hints and the image classifier's guess, reordered by the
// profile's learned affinity so the strongest category is searched first.
// With no signal at all, every index is searched.
func (s *RetrievalService) InferCategories(constraints entities.ParsedConstraints, imageCategory string, profile *entities.UserProfile) []string {
	all := s.search.Categories()
	known := make(map[string]struct{}, len(all))
	for _, c := range all {
		known[c] = struct{}{}
	}

	seen := make(map[string]struct{})
	var categories []string
	add := func(c string) {
		if _, ok := known[c]; !ok {
			return
		}
		if _, dup := seen[c]; dup {
			return
		}
		seen[c] = struct{}{}
		categories = append(categories, c)
	}

	for _, keyword := range constraints.ProductKeywords {
		if cat, ok := keywordCategories[keyword]; ok {
			add(cat)
		}
	}
	add(strings.ToLower(imageCategory))

	if len(categories) == 0 {
		categories = append(categories, all...)
	}

	if len(categories) > 1 && profile != nil && len(profile.CategoryScores) > 0 {
		sort.SliceStable(categories, func(i, j int) bool {
			return profile.CategoryScores[categories[i]] > profile.CategoryScores[categories[j]]
		})
	}

	return categories
}

// Retrieve runs the primary query and, while results remain empty, the
// recovery ladder. An empty outcome with strategy "exhausted" means every
// applicable rung came back empty.
func (s *RetrievalService) Retrieve(ctx context.Context, req RetrievalRequest) (*RetrievalOutcome, error) {
	outcome := &RetrievalOutcome{Strategy: "exhausted"}

	primary := fallbackStep{name: "primary", apply: s.primaryAttempt}
	for _, step := range append([]fallbackStep{primary}, s.steps...) {
		attempts := step.apply(req)
		if len(attempts) == 0 {
			continue
		}
		outcome.Attempts++

		for _, attempt := range attempts {
			products := s.searchCategories(ctx, attempt.categories, attempt.query, attempt.params)
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if len(products) > 0 {
				outcome.Products = products
				outcome.Strategy = step.name
				return outcome, nil
			}
		}

		log.Debug().Str("strategy", step.name).Msg("retrieval strategy returned no products")
	}

	return outcome, nil
}

// primaryAttempt is the full query: price filters applied, strict matching
// when the query carries a brand token or a model number.
func (s *RetrievalService) primaryAttempt(req RetrievalRequest) []searchAttempt {
	params := repositories.SearchParams{HitsPerPage: s.hitsPerPage, Page: 1}
	if req.Constraints.PriceRange != nil {
		params.PriceMin = req.Constraints.PriceRange.Min
		params.PriceMax = req.Constraints.PriceRange.Max
	}
	params.ExactMatch = len(req.Brands) > 0 || hasModelNumber(req.EffectiveQuery)

	return []searchAttempt{{query: req.EffectiveQuery, params: params, categories: req.Categories}}
}

// buildLadder assembles the ordered recovery rungs applied after an empty
// primary retrieval.
func (s *RetrievalService) buildLadder() []fallbackStep {
	return []fallbackStep{
		{
			// Strip everything but a brand token and a type token.
			name: "brand_type_simplification",
			apply: func(req RetrievalRequest) []searchAttempt {
				if len(req.Brands) == 0 || len(req.Constraints.ProductKeywords) == 0 {
					return nil
				}
				query := req.Brands[0] + " " + req.Constraints.ProductKeywords[0]
				return []searchAttempt{{query: query, params: s.loose(), categories: req.Categories}}
			},
		},
		{
			name: "first_keywords",
			apply: func(req RetrievalRequest) []searchAttempt {
				fields := strings.Fields(req.EffectiveQuery)
				if len(fields) <= firstKeywordsLimit {
					return nil
				}
				query := strings.Join(fields[:firstKeywordsLimit], " ")
				return []searchAttempt{{query: query, params: s.loose(), categories: req.Categories}}
			},
		},
		{
			name: "strip_model_numbers",
			apply: func(req RetrievalRequest) []searchAttempt {
				var kept []string
				stripped := false
				for _, token := range strings.Fields(req.EffectiveQuery) {
					if IsModelNumberToken(token) {
						stripped = true
						continue
					}
					kept = append(kept, token)
				}
				if !stripped || len(kept) == 0 {
					return nil
				}
				return []searchAttempt{{query: strings.Join(kept, " "), params: s.loose(), categories: req.Categories}}
			},
		},
		{
			// Brand alone with strict matching, then brand demoted to a filter
			// on the residual query.
			name: "brand_retry",
			apply: func(req RetrievalRequest) []searchAttempt {
				if len(req.Brands) == 0 {
					return nil
				}
				exact := s.loose()
				exact.ExactMatch = true
				filtered := s.loose()
				filtered.BrandFilter = req.Brands[0]
				return []searchAttempt{
					{query: req.Brands[0], params: exact, categories: req.Categories},
					{query: queryOr(req.CleanQuery, req.EffectiveQuery), params: filtered, categories: req.Categories},
				}
			},
		},
		{
			name: "broad_keywords",
			apply: func(req RetrievalRequest) []searchAttempt {
				if len(req.Constraints.ProductKeywords) == 0 {
					return nil
				}
				query := strings.Join(req.Constraints.ProductKeywords, " ")
				return []searchAttempt{{query: query, params: s.loose(), categories: req.Categories}}
			},
		},
		{
			name: "raw_query",
			apply: func(req RetrievalRequest) []searchAttempt {
				raw := strings.TrimSpace(req.RawQuery)
				if raw == "" || raw == req.EffectiveQuery {
					return nil
				}
				return []searchAttempt{{query: raw, params: s.loose(), categories: req.Categories}}
			},
		},
		{
			name: "synonym_expansion",
			apply: func(req RetrievalRequest) []searchAttempt {
				if len(req.ExpansionTerms) == 0 {
					return nil
				}
				query := strings.TrimSpace(queryOr(req.CleanQuery, req.EffectiveQuery) + " " + strings.Join(req.ExpansionTerms, " "))
				return []searchAttempt{{query: query, params: s.loose(), categories: req.Categories}}
			},
		},
		{
			// Last resort: the raw query, typo tolerance on, everywhere.
			name: "all_categories",
			apply: func(req RetrievalRequest) []searchAttempt {
				query := queryOr(req.RawQuery, req.EffectiveQuery)
				if strings.TrimSpace(query) == "" {
					return nil
				}
				return []searchAttempt{{query: query, params: s.loose(), categories: s.search.Categories()}}
			},
		},
	}
}

func (s *RetrievalService) loose() repositories.SearchParams {
	return repositories.SearchParams{HitsPerPage: s.hitsPerPage, Page: 1}
}

// searchCategories fans out one query per category index and merges the hits,
// deduplicated by product ID in category order. A failing index degrades the
// result instead of aborting the search.
func (s *RetrievalService) searchCategories(ctx context.Context, categories []string, query string, params repositories.SearchParams) []*entities.Product {
	results := make([][]*entities.Product, len(categories))

	var wg sync.WaitGroup
	for i, category := range categories {
		wg.Add(1)
		go func(i int, category string) {
			defer wg.Done()
			branchCtx, cancel := context.WithTimeout(ctx, s.branchTimeout)
			defer cancel()

			products, err := s.search.Search(branchCtx, category, query, params)
			if err != nil {
				log.Warn().Err(err).Str("category", category).Str("query", query).
					Msg("category index search failed")
				return
			}
			results[i] = products
		}(i, category)
	}
	wg.Wait()

	seen := make(map[string]struct{})
	var merged []*entities.Product
	for _, products := range results {
		for _, p := range products {
			if p == nil || p.ID == "" {
				continue
			}
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			merged = append(merged, p)
		}
	}
	return merged
}

func hasModelNumber(query string) bool {
	for _, token := range strings.Fields(query) {
		if IsModelNumberToken(token) {
			return true
		}
	}
	return false
}

func queryOr(primary, fallback string) string {
	if strings.TrimSpace(primary) != "" {
		return primary
	}
	return fallback
}
