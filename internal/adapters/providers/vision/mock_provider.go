package vision

import (
	"context"
	"strings"

	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/providers"
)

// MockImageProvider implements a canned image analysis provider for local
// development and tests.
type MockImageProvider struct{}

// NewMockImageProvider creates a new mock image analysis provider
func NewMockImageProvider() providers.ImageAnalysisProvider {
	return &MockImageProvider{}
}

// Analyze returns keywords derived from the text hint when one is given,
// otherwise a generic fashion guess.
func (m *MockImageProvider) Analyze(ctx context.Context, imageData []byte, queryHint string) (*providers.ImageAnalysis, error) {
	hint := strings.Fields(strings.ToLower(strings.TrimSpace(queryHint)))
	if len(hint) > 0 {
		if len(hint) > 4 {
			hint = hint[:4]
		}
		return &providers.ImageAnalysis{
			SearchKeywords: hint,
			Category:       "fashion",
			Confidence:     0.5,
		}, nil
	}

	return &providers.ImageAnalysis{
		SearchKeywords: []string{"white", "sneakers"},
		Category:       "fashion",
		Confidence:     0.4,
	}, nil
}
