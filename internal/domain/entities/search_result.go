package entities

// DiscoveryReason explains why a discovery item was injected.
const (
	DiscoveryDifferentCategory = "different_category"
	DiscoveryPriceRange        = "price_range"
	DiscoveryTrendingBrand     = "trending_brand"
)

// RankedProduct is a product with its personalization score and discovery
// marker as it appears in a final result list.
type RankedProduct struct {
	Product         *Product `json:"product"`
	Score           float64  `json:"score"`
	IsDiscovery     bool     `json:"is_discovery,omitempty"`
	DiscoveryReason string   `json:"discovery_reason,omitempty"`
}

// ImageAnalysisSummary is the condensed outcome of analyzing an attached image.
type ImageAnalysisSummary struct {
	SearchKeywords []string `json:"search_keywords"`
	Category       string   `json:"category,omitempty"`
	Confidence     float64  `json:"confidence"`
}

// FilterStageCounts tracks how many products each filtering stage removed.
type FilterStageCounts struct {
	Validation int `json:"validation"`
	Price      int `json:"price"`
	Color      int `json:"color"`
	Gender     int `json:"gender"`
	Style      int `json:"style"`
}

// SearchResult is the orchestrator's response: the ranked product list plus
// observability metadata about what happened along the pipeline.
type SearchResult struct {
	Products           []RankedProduct       `json:"products"`
	TotalBeforeFilter  int                   `json:"total_before_filter"`
	TotalAfterFilter   int                   `json:"total_after_filter"`
	ImageAnalysis      *ImageAnalysisSummary `json:"image_analysis,omitempty"`
	AppliedConstraints *ParsedConstraints    `json:"applied_constraints,omitempty"`
	FilterCounts       *FilterStageCounts    `json:"filter_counts,omitempty"`
	Feedback           string                `json:"feedback,omitempty"`
}
