package repositories

import (
	"context"

	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/entities"
)

// SearchParams holds the structured options passed to the search backend for
// one per-index query.
type SearchParams struct {
	HitsPerPage int
	Page        int
	// ExactMatch requests strict matching (no typo tolerance); used for
	// brand-literal queries.
	ExactMatch  bool
	BrandFilter string
	PriceMin    *float64
	PriceMax    *float64
}

// ProductSearchRepository abstracts "search one category index" against the
// hosted product-search backend. Errors surface as-is; callers decide whether
// a failing index aborts or degrades the overall search.
type ProductSearchRepository interface {
	// Search runs a full-text query against the index for one category.
	Search(ctx context.Context, category, query string, params SearchParams) ([]*entities.Product, error)

	// Categories lists the configured category indices.
	Categories() []string
}
