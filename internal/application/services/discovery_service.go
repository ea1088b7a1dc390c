package services

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/entities"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/repositories"
)

const (
	candidatesPerCategory = 10

	// Price-band strategy thresholds: cheap picks when the result set skews
	// expensive, premium picks otherwise.
	priceBandExpensiveAvg = 100.0
	priceBandCheapMax     = 50.0
	priceBandPremiumMin   = 200.0
)

// typeAlternatives maps a product type to a deliberately different type in
// the same category, for the first discovery strategy.
var typeAlternatives = map[string]string{
	"sneakers":   "boots",
	"boots":      "sneakers",
	"shoes":      "sandals",
	"dress":      "skirt",
	"jacket":     "sweater",
	"jeans":      "shorts",
	"watch":      "sunglasses",
	"bag":        "backpack",
	"backpack":   "bag",
	"laptop":     "tablet",
	"tablet":     "laptop",
	"phone":      "headphones",
	"headphones": "speaker",
	"speaker":    "headphones",
	"camera":     "monitor",
}

// DiscoveryService injects serendipity items into a ranked result list: a
// user-chosen percentage of slots goes to products outside the learned
// preferences so the feed never collapses into a filter bubble.
type DiscoveryService struct {
	search repositories.ProductSearchRepository
	rng    *rand.Rand
}

// NewDiscoveryService creates a new discovery service.
func NewDiscoveryService(search repositories.ProductSearchRepository) *DiscoveryService {
	return &DiscoveryService{
		search: search,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Candidates fetches discovery candidates by trying five strategies in
// priority order and keeping the first that yields at least one usable item:
// an alternative product type in the searched categories, a category not
// searched at all, a contrasting price band, a brand absent from the results,
// and finally a generic trending query. A usable item has a name, a
// non-negative price and is not already in the ranked list. Index failures
// shrink a strategy silently.
func (s *DiscoveryService) Candidates(ctx context.Context, ranked []entities.RankedProduct, searchedCategories []string, productType string) []*entities.Product {
	present := presentSet(ranked)

	if alt, ok := typeAlternatives[productType]; ok {
		if items := s.fetch(ctx, searchedCategories, alt, repositories.SearchParams{}, present); len(items) > 0 {
			return items
		}
	}

	if other := s.otherCategories(searchedCategories); len(other) > 0 {
		if items := s.fetch(ctx, other, "*", repositories.SearchParams{}, present); len(items) > 0 {
			return items
		}
	}

	params := repositories.SearchParams{}
	if averagePrice(ranked) > priceBandExpensiveAvg {
		max := priceBandCheapMax
		params.PriceMax = &max
	} else {
		min := priceBandPremiumMin
		params.PriceMin = &min
	}
	if items := s.fetch(ctx, searchedCategories, "*", params, present); len(items) > 0 {
		return items
	}

	if items := s.otherBrands(ctx, ranked, searchedCategories, present); len(items) > 0 {
		return items
	}

	return s.fetch(ctx, s.search.Categories(), "trending", repositories.SearchParams{}, present)
}

// DiscoveryCount returns how many of n result slots go to discovery items at
// the given percentage: ceil(n*pct/100).
func DiscoveryCount(n, pct int) int {
	if n <= 0 || pct <= 0 {
		return 0
	}
	if pct > 100 {
		pct = 100
	}
	return (n*pct + 99) / 100
}

// Inject replaces evenly spread slots of the ranked list with discovery items
// drawn from the candidate pool. The output keeps the input length; the
// lowest-ranked items yield their slots. A pool too small just means fewer
// injections.
func (s *DiscoveryService) Inject(ranked []entities.RankedProduct, pool []*entities.Product, profile *entities.UserProfile, pct int) []entities.RankedProduct {
	n := len(ranked)
	count := DiscoveryCount(n, pct)
	if count == 0 {
		return ranked
	}

	candidates := s.pickCandidates(ranked, pool, count)
	count = len(candidates)
	if count == 0 {
		return ranked
	}

	discoveries := make([]entities.RankedProduct, 0, count)
	for _, c := range candidates {
		discoveries = append(discoveries, entities.RankedProduct{
			Product:         c,
			Score:           ScoreProduct(c, profile),
			IsDiscovery:     true,
			DiscoveryReason: discoveryReason(c, ranked),
		})
	}

	// Slot i is the first index of the i-th of count equal blocks.
	out := make([]entities.RankedProduct, 0, n)
	ri, di := 0, 0
	for j := 0; j < n; j++ {
		if di < count && j == (di*n+count-1)/count {
			out = append(out, discoveries[di])
			di++
			continue
		}
		out = append(out, ranked[ri])
		ri++
	}
	return out
}

// fetch queries the given categories and returns the usable hits in a random
// order. One failing index shrinks the pool rather than aborting discovery.
func (s *DiscoveryService) fetch(ctx context.Context, categories []string, query string, params repositories.SearchParams, present map[string]struct{}) []*entities.Product {
	params.HitsPerPage = candidatesPerCategory
	params.Page = 1

	var pool []*entities.Product
	for _, category := range categories {
		products, err := s.search.Search(ctx, category, query, params)
		if err != nil {
			log.Debug().Err(err).Str("category", category).Str("query", query).
				Msg("discovery candidate fetch failed")
			continue
		}
		for _, p := range products {
			if usableCandidate(p, present) {
				pool = append(pool, p)
			}
		}
	}
	return pool
}

// otherBrands fetches items from the searched categories whose brand does not
// appear anywhere in the ranked list.
func (s *DiscoveryService) otherBrands(ctx context.Context, ranked []entities.RankedProduct, categories []string, present map[string]struct{}) []*entities.Product {
	rankedBrands := make(map[string]struct{})
	for _, rp := range ranked {
		if rp.Product != nil && rp.Product.Brand != "" {
			rankedBrands[rp.Product.Brand] = struct{}{}
		}
	}

	all := s.fetch(ctx, categories, "*", repositories.SearchParams{}, present)
	var out []*entities.Product
	for _, p := range all {
		if p.Brand == "" {
			continue
		}
		if _, dup := rankedBrands[p.Brand]; dup {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (s *DiscoveryService) otherCategories(searched []string) []string {
	excluded := make(map[string]struct{}, len(searched))
	for _, c := range searched {
		excluded[c] = struct{}{}
	}
	var out []string
	for _, category := range s.search.Categories() {
		if _, skip := excluded[category]; !skip {
			out = append(out, category)
		}
	}
	return out
}

// pickCandidates shuffles the pool and keeps the first count usable products
// not already present in the ranked list.
func (s *DiscoveryService) pickCandidates(ranked []entities.RankedProduct, pool []*entities.Product, count int) []*entities.Product {
	present := presentSet(ranked)

	shuffled := make([]*entities.Product, len(pool))
	copy(shuffled, pool)
	s.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	var picked []*entities.Product
	for _, p := range shuffled {
		if !usableCandidate(p, present) {
			continue
		}
		present[candidateKey(p)] = struct{}{}
		picked = append(picked, p)
		if len(picked) == count {
			break
		}
	}
	return picked
}

// presentSet indexes the ranked list by product ID, or by exact name when an
// item carries no ID.
func presentSet(ranked []entities.RankedProduct) map[string]struct{} {
	present := make(map[string]struct{}, len(ranked))
	for _, rp := range ranked {
		if rp.Product != nil {
			present[candidateKey(rp.Product)] = struct{}{}
		}
	}
	return present
}

func candidateKey(p *entities.Product) string {
	if p.ID != "" {
		return "id:" + p.ID
	}
	return "name:" + p.Name
}

func usableCandidate(p *entities.Product, present map[string]struct{}) bool {
	if p == nil || p.Name == "" || p.Price < 0 {
		return false
	}
	_, dup := present[candidateKey(p)]
	return !dup
}

func averagePrice(ranked []entities.RankedProduct) float64 {
	var sum float64
	var n int
	for _, rp := range ranked {
		if rp.Product != nil && rp.Product.Price > 0 {
			sum += rp.Product.Price
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// discoveryReason explains what makes the item a departure from the regular
// result set, checked from strongest departure to weakest: a category the set
// does not contain, then a price outside the set's band, then trending.
func discoveryReason(product *entities.Product, ranked []entities.RankedProduct) string {
	rankedCategories := make(map[string]struct{})
	for _, rp := range ranked {
		if rp.Product != nil {
			rankedCategories[rp.Product.Category] = struct{}{}
		}
	}
	if _, same := rankedCategories[product.Category]; !same {
		return entities.DiscoveryDifferentCategory
	}

	if min, max, ok := rankedPriceBounds(ranked); ok && product.Price > 0 {
		if product.Price < min || product.Price > max {
			return entities.DiscoveryPriceRange
		}
	}

	return entities.DiscoveryTrendingBrand
}

// rankedPriceBounds returns the price band of the regular result set. ok is
// false when no ranked item carries a price.
func rankedPriceBounds(ranked []entities.RankedProduct) (float64, float64, bool) {
	var min, max float64
	found := false
	for _, rp := range ranked {
		if rp.Product == nil || rp.Product.Price <= 0 {
			continue
		}
		if !found || rp.Product.Price < min {
			min = rp.Product.Price
		}
		if !found || rp.Product.Price > max {
			max = rp.Product.Price
		}
		found = true
	}
	return min, max, found
}
