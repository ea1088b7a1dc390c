package providers

import (
	"context"
)

// ImageAnalysis is the opaque outcome of analyzing a query image: the
// keywords to search with, an optional category guess and a confidence.
type ImageAnalysis struct {
	SearchKeywords []string `json:"search_keywords"`
	Category       string   `json:"category,omitempty"`
	Confidence     float64  `json:"confidence"`
}

// ImageAnalysisProvider analyzes an attached query image. A single blocking
// call with a bounded timeout; any failure is treated by callers as "no image
// signal" and the search degrades to text-only.
type ImageAnalysisProvider interface {
	Analyze(ctx context.Context, imageData []byte, queryHint string) (*ImageAnalysis, error)
}
