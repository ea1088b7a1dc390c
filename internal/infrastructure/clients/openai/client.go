package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/providers"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/pkg/config"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client implements image analysis against the OpenAI vision API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	limiter    *tokenBucket
}

// NewClient creates a new OpenAI client.
func NewClient(cfg *config.OpenAIConfig) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	limiter := newTokenBucket(cfg.RateLimitRPM, cfg.RateLimitBurst)

	return &Client{
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		limiter: limiter,
	}, nil
}

type chatMessage struct {
	Content string `json:"content"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatEnvelope struct {
	Choices []chatChoice `json:"choices"`
}

type analysisPayload struct {
	SearchKeywords []string `json:"search_keywords"`
	Category       string   `json:"category"`
	Confidence     float64  `json:"confidence"`
}

// AnalyzeImage sends the image with an optional text hint and returns the
// extracted search keywords, category guess and confidence.
func (c *Client) AnalyzeImage(ctx context.Context, imageData []byte, queryHint string) (*providers.ImageAnalysis, error) {
	if len(imageData) == 0 {
		return nil, errors.New("image data is required")
	}

	if c.limiter != nil {
		waitStart := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			recordVisionMetric(ctx, c.model, 0, 0, err)
			return nil, err
		}
		recordVisionRateLimitWait(ctx, c.model, time.Since(waitStart))
	}

	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(imageData)

	payload := map[string]interface{}{
		"model": c.model,
		"messages": []map[string]interface{}{
			{"role": "system", "content": imageAnalysisSystemPrompt},
			{
				"role": "user",
				"content": []map[string]interface{}{
					{"type": "text", "text": buildImageAnalysisUserPrompt(queryHint)},
					{"type": "image_url", "image_url": map[string]string{"url": dataURL}},
				},
			},
		},
		"temperature": 0.2,
		"max_tokens":  300,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		recordVisionMetric(ctx, c.model, 0, time.Since(start), err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		recordVisionMetric(ctx, c.model, resp.StatusCode, time.Since(start), fmt.Errorf("status %d", resp.StatusCode))
		return nil, fmt.Errorf("openai request failed with status %d", resp.StatusCode)
	}

	var envelope chatEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		recordVisionMetric(ctx, c.model, resp.StatusCode, time.Since(start), err)
		return nil, err
	}

	if len(envelope.Choices) == 0 || envelope.Choices[0].Message.Content == "" {
		recordVisionMetric(ctx, c.model, resp.StatusCode, time.Since(start), errors.New("missing output text"))
		return nil, errors.New("openai response missing output text")
	}

	// Clean Markdown code blocks if present
	cleaned := envelope.Choices[0].Message.Content
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimSuffix(cleaned, "```")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
	}
	cleaned = strings.TrimSpace(cleaned)

	var parsed analysisPayload
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		recordVisionMetric(ctx, c.model, resp.StatusCode, time.Since(start), err)
		return nil, fmt.Errorf("failed to parse openai response: %w", err)
	}

	if len(parsed.SearchKeywords) == 0 {
		recordVisionMetric(ctx, c.model, resp.StatusCode, time.Since(start), errors.New("no keywords"))
		return nil, errors.New("openai response contained no search keywords")
	}

	if parsed.Confidence < 0 {
		parsed.Confidence = 0
	}
	if parsed.Confidence > 1 {
		parsed.Confidence = 1
	}

	recordVisionMetric(ctx, c.model, resp.StatusCode, time.Since(start), nil)
	return &providers.ImageAnalysis{
		SearchKeywords: parsed.SearchKeywords,
		Category:       strings.ToLower(strings.TrimSpace(parsed.Category)),
		Confidence:     parsed.Confidence,
	}, nil
}

func newTokenBucket(rpm int, burst int) *tokenBucket {
	if rpm == 0 {
		rpm = 60
	}
	if rpm < 0 {
		return nil
	}
	if burst <= 0 {
		burst = 5
	}
	return newTokenBucketWithRate(rpm, burst)
}

type tokenBucket struct {
	tokens chan struct{}
}

func newTokenBucketWithRate(rpm int, burst int) *tokenBucket {
	bucket := &tokenBucket{
		tokens: make(chan struct{}, burst),
	}

	for i := 0; i < burst; i++ {
		bucket.tokens <- struct{}{}
	}

	interval := time.Minute / time.Duration(rpm)
	if interval <= 0 {
		interval = time.Millisecond
	}

	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			select {
			case bucket.tokens <- struct{}{}:
			default:
			}
		}
	}()

	return bucket
}

func (b *tokenBucket) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.tokens:
		return nil
	}
}

type visionMetrics struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestErrors   metric.Int64Counter
	rateLimitWait   metric.Float64Histogram
}

var visionMetricsInit = false
var visionMetricsStore visionMetrics

func ensureVisionMetrics() {
	if visionMetricsInit {
		return
	}
	meter := otel.Meter("github.com/goodaymmm/shopping-for-algolia-personalized-sub000/openai")

	requestCount, err := meter.Int64Counter(
		"ai.vision.request.count",
		metric.WithDescription("Number of image analysis requests"),
	)
	if err != nil {
		return
	}
	requestDuration, err := meter.Float64Histogram(
		"ai.vision.request.duration",
		metric.WithDescription("Image analysis request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return
	}
	requestErrors, err := meter.Int64Counter(
		"ai.vision.request.errors",
		metric.WithDescription("Number of image analysis request errors"),
	)
	if err != nil {
		return
	}
	rateLimitWait, err := meter.Float64Histogram(
		"ai.vision.rate_limit.wait",
		metric.WithDescription("Time spent waiting for the rate limiter in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return
	}

	visionMetricsStore = visionMetrics{
		requestCount:    requestCount,
		requestDuration: requestDuration,
		requestErrors:   requestErrors,
		rateLimitWait:   rateLimitWait,
	}
	visionMetricsInit = true
}

func recordVisionMetric(ctx context.Context, model string, statusCode int, duration time.Duration, err error) {
	ensureVisionMetrics()
	if !visionMetricsInit {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", "openai"),
		attribute.String("ai.model", model),
	}
	if statusCode > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", statusCode))
	}

	visionMetricsStore.requestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	visionMetricsStore.requestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		visionMetricsStore.requestErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func recordVisionRateLimitWait(ctx context.Context, model string, wait time.Duration) {
	ensureVisionMetrics()
	if !visionMetricsInit {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", "openai"),
		attribute.String("ai.model", model),
	}
	visionMetricsStore.rateLimitWait.Record(ctx, float64(wait.Milliseconds()), metric.WithAttributes(attrs...))
}
