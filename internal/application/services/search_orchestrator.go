package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/entities"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/providers"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/infrastructure/observability"
	apperrors "github.com/goodaymmm/shopping-for-algolia-personalized-sub000/pkg/errors"
)

// Below this confidence the profile is too thin to reorder results; the
// backend's relevance order stands.
const rerankConfidenceGate = 0.1

// followUpPhrases mark a query as a refinement of the previous result set
// rather than a fresh search.
var followUpPhrases = []string{
	"under", "over", "cheaper", "less than", "more than", "at least",
	"show me", "in black", "in white", "in red", "in blue", "in green",
	"instead", "only",
}

// SearchRequest is one search call as the API surface hands it over.
type SearchRequest struct {
	Query        string
	ImageData    []byte
	DiscoveryPct *int
	SessionID    string
}

// SearchOrchestrator runs the full pipeline for one search: understand the
// query, retrieve candidates per category, filter on explicit constraints,
// re-rank against the learned profile and inject discovery items. Each stage
// degrades rather than fails where a partial answer is still useful.
type SearchOrchestrator struct {
	parser          *ConstraintParser
	personalization *PersonalizationService
	retrieval       *RetrievalService
	discovery       *DiscoveryService
	expansion       *TermExpansionService
	analytics       *SearchAnalyticsService
	vision          providers.ImageAnalysisProvider
	cache           *ResultCache

	defaultDiscoveryPct int

	mu       sync.Mutex
	sessions map[string]string // session id -> cache key of the last result
}

// NewSearchOrchestrator wires the pipeline. vision may be nil; image requests
// then degrade to text-only with feedback.
func NewSearchOrchestrator(
	parser *ConstraintParser,
	personalization *PersonalizationService,
	retrieval *RetrievalService,
	discovery *DiscoveryService,
	expansion *TermExpansionService,
	analytics *SearchAnalyticsService,
	vision providers.ImageAnalysisProvider,
	cache *ResultCache,
	defaultDiscoveryPct int,
) *SearchOrchestrator {
	return &SearchOrchestrator{
		parser:              parser,
		personalization:     personalization,
		retrieval:           retrieval,
		discovery:           discovery,
		expansion:           expansion,
		analytics:           analytics,
		vision:              vision,
		cache:               cache,
		defaultDiscoveryPct: defaultDiscoveryPct,
		sessions:            make(map[string]string),
	}
}

// InvalidateCache drops all cached results. Called after any interaction
// event, since cached rankings were computed against the previous profile.
func (o *SearchOrchestrator) InvalidateCache() {
	o.cache.Invalidate()
}

// Search runs the pipeline end to end.
func (o *SearchOrchestrator) Search(ctx context.Context, req SearchRequest) (*entities.SearchResult, error) {
	ctx, span := observability.StartSpan(ctx, "search.pipeline")
	defer span.End()
	logger := observability.LoggerFromContext(ctx)
	started := time.Now()

	query := strings.TrimSpace(req.Query)
	if query == "" && len(req.ImageData) == 0 {
		return nil, apperrors.NewValidationError("query or image is required")
	}

	discoveryPct := o.defaultDiscoveryPct
	if req.DiscoveryPct != nil {
		discoveryPct = *req.DiscoveryPct
	}
	if discoveryPct < 0 {
		discoveryPct = 0
	}
	if discoveryPct > 100 {
		discoveryPct = 100
	}

	constraints := o.parser.Parse(query)
	cleanQuery := o.parser.CleanQuery(query, constraints)

	imageHash := ""
	if len(req.ImageData) > 0 {
		sum := sha256.Sum256(req.ImageData)
		imageHash = hex.EncodeToString(sum[:])
	}

	cacheKey := CacheKey(query, constraints, imageHash, discoveryPct)
	if cached := o.cache.Get(cacheKey); cached != nil {
		span.SetAttributes(attribute.Bool("search.cache_hit", true))
		return cached, nil
	}

	// A refinement query filters the session's previous result set instead of
	// issuing a new retrieval.
	if len(req.ImageData) == 0 && isFollowUpQuery(query) {
		if previous := o.previousResult(req.SessionID); previous != nil {
			span.SetAttributes(attribute.Bool("search.follow_up", true))
			result := refineResult(previous, constraints)
			o.cache.Set(cacheKey, result)
			o.rememberSession(req.SessionID, cacheKey)
			o.logSearch(req, query, nil, nil, len(result.Products), time.Since(started))
			return result, nil
		}
	}

	var feedback []string
	imageSummary, imageFeedback := o.analyzeImage(ctx, req.ImageData, cleanQuery)
	if imageFeedback != "" {
		feedback = append(feedback, imageFeedback)
	}

	effectiveQuery := buildEffectiveQuery(query, cleanQuery, constraints, imageSummary)
	brands := o.parser.DetectBrands(query)

	profile, err := o.personalization.GetProfile(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("profile unavailable, searching without personalization")
		profile = entities.NewUserProfile()
	}

	imageCategory := ""
	if imageSummary != nil {
		imageCategory = imageSummary.Category
	}
	categories := o.retrieval.InferCategories(constraints, imageCategory, profile)

	// Enrich the query with terms that worked in past searches; synonyms stay
	// in reserve for the zero-result ladder.
	if historyTerms := o.expansion.HistoryTerms(ctx, effectiveQuery); len(historyTerms) > 0 {
		effectiveQuery = strings.TrimSpace(effectiveQuery + " " + strings.Join(historyTerms, " "))
	}
	synonyms := o.expansion.Synonyms(effectiveQuery, brands)

	outcome, err := o.retrieval.Retrieve(ctx, RetrievalRequest{
		RawQuery:       query,
		EffectiveQuery: effectiveQuery,
		CleanQuery:     cleanQuery,
		Constraints:    constraints,
		Brands:         brands,
		Categories:     categories,
		ExpansionTerms: synonyms,
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("search.strategy", outcome.Strategy),
		attribute.Int("search.retrieved", len(outcome.Products)),
	)
	if len(outcome.Products) == 0 {
		feedback = append(feedback, "no products found for this search")
	}

	filtered, counts := FilterProducts(outcome.Products, constraints)
	if len(filtered) == 0 && len(outcome.Products) > 0 {
		// Better a loose answer than an empty page.
		filtered = validProducts(outcome.Products)
		counts = &entities.FilterStageCounts{}
		feedback = append(feedback, "no products matched every filter; showing closest matches")
	}

	var ranked []entities.RankedProduct
	if profile.ConfidenceLevel > rerankConfidenceGate {
		ranked = o.personalization.RankProducts(filtered, profile)
	} else {
		ranked = make([]entities.RankedProduct, 0, len(filtered))
		for _, p := range filtered {
			ranked = append(ranked, entities.RankedProduct{Product: p, Score: ScoreProduct(p, profile)})
		}
	}

	if discoveryPct > 0 && len(ranked) > 0 {
		productType := ""
		if len(constraints.ProductKeywords) > 0 {
			productType = constraints.ProductKeywords[0]
		}
		pool := o.discovery.Candidates(ctx, ranked, categories, productType)
		ranked = o.discovery.Inject(ranked, pool, profile, discoveryPct)
	}

	result := &entities.SearchResult{
		Products:           ranked,
		TotalBeforeFilter:  len(outcome.Products),
		TotalAfterFilter:   len(filtered),
		ImageAnalysis:      imageSummary,
		AppliedConstraints: &constraints,
		FilterCounts:       counts,
		Feedback:           strings.Join(feedback, "; "),
	}

	o.cache.Set(cacheKey, result)
	o.rememberSession(req.SessionID, cacheKey)
	o.logSearch(req, effectiveQuery, categories, imageSummary, len(ranked), time.Since(started))
	o.recordSearchEvent(query, effectiveQuery, categories, imageSummary)

	logger.Info().
		Str("strategy", outcome.Strategy).
		Int("retrieved", len(outcome.Products)).
		Int("returned", len(ranked)).
		Dur("latency", time.Since(started)).
		Msg("search completed")

	return result, nil
}

// analyzeImage runs the vision provider when an image is attached. Any
// failure downgrades the request to text-only and tells the user so.
func (o *SearchOrchestrator) analyzeImage(ctx context.Context, imageData []byte, queryHint string) (*entities.ImageAnalysisSummary, string) {
	if len(imageData) == 0 {
		return nil, ""
	}
	if o.vision == nil {
		return nil, "image analysis is not configured; searched by text only"
	}

	analysis, err := o.vision.Analyze(ctx, imageData, queryHint)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("image analysis failed")
		return nil, "image analysis failed; searched by text only"
	}

	return &entities.ImageAnalysisSummary{
		SearchKeywords: analysis.SearchKeywords,
		Category:       analysis.Category,
		Confidence:     analysis.Confidence,
	}, ""
}

// buildEffectiveQuery resolves what is actually sent to the search backend.
// Image keywords lead when present; the text query joins them only when it
// carries its own constraint signal or comparison language, so a vague
// caption does not dilute a precise visual query. Text-only searches use the
// extracted product keywords, falling back to the constraint-stripped
// residual.
func buildEffectiveQuery(query, cleanQuery string, constraints entities.ParsedConstraints, image *entities.ImageAnalysisSummary) string {
	if image != nil && len(image.SearchKeywords) > 0 {
		keywords := strings.Join(image.SearchKeywords, " ")
		text := queryOr(cleanQuery, query)
		if strings.TrimSpace(text) != "" && (constraints.HasSignal() || hasComparisonMarker(constraints)) {
			return strings.TrimSpace(keywords + " " + text)
		}
		return keywords
	}

	if len(constraints.ProductKeywords) > 0 {
		return strings.Join(constraints.ProductKeywords, " ")
	}
	return queryOr(cleanQuery, query)
}

func hasComparisonMarker(constraints entities.ParsedConstraints) bool {
	for _, c := range constraints.OtherConstraints {
		if c == "similar-style" {
			return true
		}
	}
	return false
}

func isFollowUpQuery(query string) bool {
	padded := " " + strings.ToLower(query) + " "
	for _, phrase := range followUpPhrases {
		if strings.Contains(padded, " "+phrase+" ") {
			return true
		}
	}
	return false
}

// refineResult applies a follow-up query's price and color constraints as a
// pure filter over the previous result set.
func refineResult(previous *entities.SearchResult, constraints entities.ParsedConstraints) *entities.SearchResult {
	kept := make([]entities.RankedProduct, 0, len(previous.Products))
	for _, rp := range previous.Products {
		if rp.Product == nil {
			continue
		}
		if !priceMatches(rp.Product, constraints.PriceRange) {
			continue
		}
		if !colorMatches(rp.Product, constraints.Colors) {
			continue
		}
		kept = append(kept, rp)
	}

	return &entities.SearchResult{
		Products:           kept,
		TotalBeforeFilter:  len(previous.Products),
		TotalAfterFilter:   len(kept),
		ImageAnalysis:      previous.ImageAnalysis,
		AppliedConstraints: &constraints,
		Feedback:           "refined previous results",
	}
}

// FilterProducts applies the constraint filters in a fixed stage order and
// reports how many products each stage removed. Comparison language
// ("similar", "like") turns the style constraint into a wildcard: the user
// wants things in the neighborhood, so a missing style match must not drop a
// product.
func FilterProducts(products []*entities.Product, constraints entities.ParsedConstraints) ([]*entities.Product, *entities.FilterStageCounts) {
	counts := &entities.FilterStageCounts{}
	kept := make([]*entities.Product, 0, len(products))
	styleWildcard := hasComparisonMarker(constraints)

	for _, p := range products {
		if !isValidProduct(p) {
			counts.Validation++
			continue
		}
		if !priceMatches(p, constraints.PriceRange) {
			counts.Price++
			continue
		}
		if !colorMatches(p, constraints.Colors) {
			counts.Color++
			continue
		}
		if !genderMatches(p, constraints.Gender) {
			counts.Gender++
			continue
		}
		if !styleWildcard && !styleMatches(p, constraints.Styles) {
			counts.Style++
			continue
		}
		kept = append(kept, p)
	}

	return kept, counts
}

func validProducts(products []*entities.Product) []*entities.Product {
	kept := make([]*entities.Product, 0, len(products))
	for _, p := range products {
		if isValidProduct(p) {
			kept = append(kept, p)
		}
	}
	return kept
}

func isValidProduct(p *entities.Product) bool {
	return p != nil && p.ID != "" && p.Name != "" && p.Price >= 0 &&
		isValidProductURL(p.ImageURL) && isValidProductURL(p.ProductURL)
}

// isValidProductURL rejects missing, placeholder and obviously-local URLs so
// broken catalog rows never reach the user.
func isValidProductURL(u string) bool {
	if u == "" {
		return false
	}
	lower := strings.ToLower(u)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return false
	}
	for _, marker := range []string{"localhost", "127.0.0.1", "placeholder", "/tmp/", "/temp/"} {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	return !strings.HasSuffix(lower, ".tmp")
}

func priceMatches(p *entities.Product, r *entities.PriceRange) bool {
	if r == nil {
		return true
	}
	if r.Min != nil && p.Price < *r.Min {
		return false
	}
	if r.Max != nil && p.Price > *r.Max {
		return false
	}
	return true
}

func colorMatches(p *entities.Product, colors []string) bool {
	if len(colors) == 0 {
		return true
	}
	haystack := strings.ToLower(p.Name + " " + p.Description + " " + strings.Join(p.Colors, " "))
	for _, color := range colors {
		if strings.Contains(haystack, color) {
			return true
		}
	}
	return false
}

// genderMatches keeps products that either carry the requested gender marker
// or carry no gender marker at all. Products explicitly for another gender
// are dropped.
func genderMatches(p *entities.Product, gender string) bool {
	if gender == "" {
		return true
	}
	haystack := " " + strings.ToLower(p.Name+" "+p.Description) + " "

	markers := map[string][]string{
		"men":    {" men ", " men's ", " mens ", " male "},
		"women":  {" women ", " women's ", " womens ", " female ", " ladies "},
		"unisex": {" unisex "},
	}

	for _, marker := range markers[gender] {
		if strings.Contains(haystack, marker) {
			return true
		}
	}
	for g, groupMarkers := range markers {
		if g == gender {
			continue
		}
		for _, marker := range groupMarkers {
			if strings.Contains(haystack, marker) {
				return false
			}
		}
	}
	return true
}

func styleMatches(p *entities.Product, styles []string) bool {
	if len(styles) == 0 {
		return true
	}
	haystack := strings.ToLower(p.Name + " " + p.Description + " " + strings.Join(p.Styles, " "))
	for _, style := range styles {
		if strings.Contains(haystack, style) {
			return true
		}
	}
	return false
}

// previousResult returns the session's last cached result, if it is still
// alive.
func (o *SearchOrchestrator) previousResult(sessionID string) *entities.SearchResult {
	o.mu.Lock()
	key, ok := o.sessions[sessionID]
	o.mu.Unlock()
	if !ok {
		return nil
	}
	return o.cache.Get(key)
}

func (o *SearchOrchestrator) rememberSession(sessionID, cacheKey string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sessions[sessionID] = cacheKey
}

func (o *SearchOrchestrator) logSearch(req SearchRequest, effectiveQuery string, categories []string, image *entities.ImageAnalysisSummary, resultCount int, latency time.Duration) {
	entry := &entities.SearchLogEntry{
		Query:          req.Query,
		EffectiveQuery: effectiveQuery,
		Categories:     categories,
		ResultCount:    resultCount,
		LatencyMs:      latency.Milliseconds(),
		SessionID:      req.SessionID,
	}
	if image != nil {
		entry.ImageKeywords = image.SearchKeywords
		entry.ImageCategory = image.Category
	}
	o.analytics.LogSearch(entry)
}

// recordSearchEvent feeds an image-assisted search into the learning loop,
// fire-and-forget on a fresh context so a slow write never delays the
// response. Plain text searches train the profile through the explicit
// interaction endpoints instead.
func (o *SearchOrchestrator) recordSearchEvent(query, effectiveQuery string, categories []string, image *entities.ImageAnalysisSummary) {
	if image == nil {
		return
	}
	category := ""
	if len(categories) == 1 {
		category = categories[0]
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), analyticsWriteTimeout)
		defer cancel()
		err := o.personalization.RecordInteraction(ctx, &entities.InteractionEvent{
			EventType: entities.EventSearch,
			Source:    entities.SourceStandaloneApp,
			Context: entities.InteractionContext{
				SearchQuery:   queryOr(effectiveQuery, query),
				Category:      category,
				ImageFeatures: image.SearchKeywords,
			},
		})
		if err != nil {
			observability.GetLogger().Warn().Err(err).Msg("failed to record search event")
		}
	}()
}
