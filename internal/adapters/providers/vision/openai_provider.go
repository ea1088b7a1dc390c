package vision

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/providers"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/infrastructure/clients/openai"
)

const (
	analysisTimeout  = 15 * time.Second
	analysisCacheTTL = 86400 // 24 hours; the same image yields the same keywords
)

// OpenAIImageProvider implements image analysis via the OpenAI vision client,
// with an optional cache keyed by image content hash.
type OpenAIImageProvider struct {
	client *openai.Client
	cache  providers.CacheProvider
}

// NewOpenAIImageProvider creates a new OpenAI-backed image analysis provider.
// cache may be nil.
func NewOpenAIImageProvider(client *openai.Client, cache providers.CacheProvider) providers.ImageAnalysisProvider {
	return &OpenAIImageProvider{client: client, cache: cache}
}

// Analyze extracts search keywords and a category guess from the image.
func (p *OpenAIImageProvider) Analyze(ctx context.Context, imageData []byte, queryHint string) (*providers.ImageAnalysis, error) {
	cacheKey := analysisCacheKey(imageData)

	if p.cache != nil {
		if data, err := p.cache.Get(ctx, cacheKey); err == nil {
			var cached providers.ImageAnalysis
			if json.Unmarshal(data, &cached) == nil {
				return &cached, nil
			}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, analysisTimeout)
	defer cancel()

	analysis, err := p.client.AnalyzeImage(ctx, imageData, queryHint)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		if data, err := json.Marshal(analysis); err == nil {
			_ = p.cache.Set(ctx, cacheKey, data, analysisCacheTTL)
		}
	}

	return analysis, nil
}

func analysisCacheKey(imageData []byte) string {
	sum := sha256.Sum256(imageData)
	return "image_analysis:" + hex.EncodeToString(sum[:])
}
