package openai

import (
	"fmt"
	"strings"
)

const imageAnalysisSystemPrompt = `You are a product recognition assistant for a shopping search engine.
Given a photo of a product, respond with a single JSON object and nothing else:
{
  "search_keywords": ["3-6 short keywords describing the product, most specific first"],
  "category": "one of: fashion, electronics, books, home, sports, beauty, food",
  "confidence": 0.0-1.0
}
Keywords must be lowercase search terms a shopper would type, not sentences.
If the category is unclear, omit it or use your best single guess.`

func buildImageAnalysisUserPrompt(queryHint string) string {
	hint := strings.TrimSpace(queryHint)
	if hint == "" {
		return "Identify the product in this image."
	}
	return fmt.Sprintf("Identify the product in this image. The user described it as: %q.", hint)
}
