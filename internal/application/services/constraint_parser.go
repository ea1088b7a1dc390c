package services

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/entities"
)

// ConstraintParser extracts structured shopping constraints (price range,
// colors, sizes, gender, style, product-type keywords) from free text via
// pattern matching. Pure and deterministic; it never errors — a constraint
// type that is not present is simply omitted.
type ConstraintParser struct {
	colors      []string
	styles      []string
	sizeTokens  []string
	genderTerms []genderGroup
	products    []string
	brands      []string
	fillerWords map[string]struct{}
}

// genderGroup is one entry in the ordered gender predicate list.
type genderGroup struct {
	gender string
	terms  []string
}

var (
	priceUpperPattern   = regexp.MustCompile(`(?:under|less than|below|max)\s*\$?(\d+(?:\.\d+)?)`)
	priceLowerPattern   = regexp.MustCompile(`(?:over|more than|at least)\s*\$?(\d+(?:\.\d+)?)`)
	priceBetweenPattern = regexp.MustCompile(`between\s*\$?(\d+(?:\.\d+)?)\s*and\s*\$?(\d+(?:\.\d+)?)`)
	priceRangePattern   = regexp.MustCompile(`\$(\d+(?:\.\d+)?)\s*(?:-|to)\s*\$?(\d+(?:\.\d+)?)`)
	priceAroundPattern  = regexp.MustCompile(`(?:around|about)\s*\$?(\d+(?:\.\d+)?)`)

	compoundColorPattern = regexp.MustCompile(`(dark|light|bright)\s+(black|white|red|blue|green|yellow|pink|purple|orange|brown|grey|gray|navy|beige|gold|silver)`)
	sizeNumberPattern    = regexp.MustCompile(`size\s+([a-z0-9.]+)`)
	modelNumberPattern   = regexp.MustCompile(`^(?:[a-z]+\d{2,}[a-z0-9-]*|\d{3,}[a-z0-9-]*)$`)
	tokenPattern         = regexp.MustCompile(`[a-z0-9$.'-]+`)
	punctuationPattern   = regexp.MustCompile(`[^\p{L}\p{N}\s$.-]`)
)

// NewConstraintParser creates a parser with the default vocabularies. The
// lists cover common apparel and electronics terms and are open to extension.
func NewConstraintParser() *ConstraintParser {
	fillers := []string{
		"show", "me", "find", "search", "a", "an", "the", "for", "with",
		"please", "i", "want", "need", "some", "buy", "get", "looking",
		"something", "anything", "cheap", "nice", "good",
	}
	fillerSet := make(map[string]struct{}, len(fillers))
	for _, f := range fillers {
		fillerSet[f] = struct{}{}
	}

	return &ConstraintParser{
		colors: []string{
			"black", "white", "red", "blue", "green", "yellow", "pink",
			"purple", "orange", "brown", "grey", "gray", "navy", "beige",
			"gold", "silver",
		},
		styles: []string{
			"casual", "formal", "sporty", "elegant", "vintage", "modern",
			"classic", "trendy", "bohemian", "minimalist",
		},
		sizeTokens: []string{"xs", "s", "m", "l", "xl", "xxl", "small", "medium", "large"},
		// Checked in this fixed order; a query containing both resolves to
		// whichever group comes first. Kept for compatibility with the
		// historical behavior, not because the order is meaningful.
		genderTerms: []genderGroup{
			{gender: "men", terms: []string{"men", "men's", "mens", "male", "him", "guys"}},
			{gender: "women", terms: []string{"women", "women's", "womens", "female", "her", "ladies"}},
			{gender: "unisex", terms: []string{"unisex"}},
		},
		products: []string{
			"shoes", "sneakers", "boots", "sandals", "heels", "shirt",
			"t-shirt", "tshirt", "dress", "skirt", "jacket", "coat", "jeans",
			"pants", "shorts", "sweater", "hoodie", "bag", "backpack",
			"watch", "sunglasses", "hat", "scarf", "laptop", "phone",
			"smartphone", "headphones", "earbuds", "camera", "tablet",
			"speaker", "monitor", "keyboard", "mouse", "charger",
		},
		brands: []string{
			"nike", "adidas", "puma", "reebok", "converse", "vans",
			"zara", "uniqlo", "levis", "gucci", "prada",
			"apple", "samsung", "sony", "lg", "dell", "hp", "lenovo",
			"canon", "nikon", "bose", "anker", "logitech",
		},
		fillerWords: fillerSet,
	}
}

// Parse extracts all constraints present in the query.
func (p *ConstraintParser) Parse(query string) entities.ParsedConstraints {
	q := strings.ToLower(strings.TrimSpace(query))
	constraints := entities.ParsedConstraints{}
	if q == "" {
		return constraints
	}

	constraints.PriceRange = p.parsePrice(q)

	// Numeric tokens inside a matched price phrase must not be mistaken for
	// shoe sizes, so size extraction works on the price-stripped residual.
	residual := p.stripPricePhrases(q)

	constraints.Colors = p.parseColors(q)
	constraints.Styles = p.matchVocabulary(q, p.styles)
	constraints.Sizes = p.parseSizes(residual)
	constraints.Gender = p.parseGender(q)
	constraints.ProductKeywords = p.matchVocabulary(q, p.products)

	// Comparison language ("similar to this", "shoes like these") marks the
	// query as describing a neighborhood rather than exact attributes.
	tokens := tokenSet(q)
	for _, marker := range []string{"similar", "like"} {
		if _, ok := tokens[marker]; ok {
			constraints.OtherConstraints = append(constraints.OtherConstraints, "similar-style")
			break
		}
	}

	return constraints
}

// DetectBrands returns the known brand tokens present in the query, in
// vocabulary order.
func (p *ConstraintParser) DetectBrands(query string) []string {
	return p.matchVocabulary(strings.ToLower(query), p.brands)
}

// CleanQuery removes all matched constraint substrings, gender vocabulary,
// filler words and punctuation from the query, collapsing whitespace. Used to
// produce a minimal residual query when no product keyword was extracted.
func (p *ConstraintParser) CleanQuery(query string, constraints entities.ParsedConstraints) string {
	q := strings.ToLower(strings.TrimSpace(query))
	q = p.stripPricePhrases(q)
	q = compoundColorPattern.ReplaceAllString(q, " ")
	q = sizeNumberPattern.ReplaceAllString(q, " ")
	q = punctuationPattern.ReplaceAllString(q, " ")

	removed := make(map[string]struct{})
	for _, c := range constraints.Colors {
		for _, part := range strings.Fields(c) {
			removed[part] = struct{}{}
		}
	}
	for _, s := range constraints.Styles {
		removed[s] = struct{}{}
	}
	for _, s := range constraints.Sizes {
		removed[s] = struct{}{}
		removed["size"] = struct{}{}
	}
	for _, group := range p.genderTerms {
		for _, term := range group.terms {
			removed[punctuationPattern.ReplaceAllString(term, "")] = struct{}{}
			removed[term] = struct{}{}
		}
	}

	var kept []string
	for _, token := range tokenPattern.FindAllString(q, -1) {
		trimmed := strings.Trim(token, "$.-'")
		if trimmed == "" {
			continue
		}
		if _, ok := removed[trimmed]; ok {
			continue
		}
		if _, ok := p.fillerWords[trimmed]; ok {
			continue
		}
		kept = append(kept, trimmed)
	}

	return strings.Join(kept, " ")
}

// parsePrice recognizes the five supported price phrasings. Lower and upper
// bounds may combine; an explicit range or "between" overrides both; the
// approximate form applies only when no bound was already set.
func (p *ConstraintParser) parsePrice(q string) *entities.PriceRange {
	var min, max *float64

	if m := priceUpperPattern.FindStringSubmatch(q); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			max = &v
		}
	}
	if m := priceLowerPattern.FindStringSubmatch(q); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			min = &v
		}
	}

	rangeMatch := priceBetweenPattern.FindStringSubmatch(q)
	if rangeMatch == nil {
		rangeMatch = priceRangePattern.FindStringSubmatch(q)
	}
	if rangeMatch != nil {
		lo, errLo := strconv.ParseFloat(rangeMatch[1], 64)
		hi, errHi := strconv.ParseFloat(rangeMatch[2], 64)
		if errLo == nil && errHi == nil {
			min, max = &lo, &hi
		}
	}

	if min == nil && max == nil {
		if m := priceAroundPattern.FindStringSubmatch(q); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				lo := v * 0.8
				hi := v * 1.2
				min, max = &lo, &hi
			}
		}
	}

	if min == nil && max == nil {
		return nil
	}
	return &entities.PriceRange{Min: min, Max: max}
}

func (p *ConstraintParser) stripPricePhrases(q string) string {
	q = priceBetweenPattern.ReplaceAllString(q, " ")
	q = priceRangePattern.ReplaceAllString(q, " ")
	q = priceUpperPattern.ReplaceAllString(q, " ")
	q = priceLowerPattern.ReplaceAllString(q, " ")
	q = priceAroundPattern.ReplaceAllString(q, " ")
	return q
}

func (p *ConstraintParser) parseColors(q string) []string {
	seen := make(map[string]struct{})
	var colors []string

	add := func(c string) {
		if _, ok := seen[c]; !ok {
			seen[c] = struct{}{}
			colors = append(colors, c)
		}
	}

	for _, m := range compoundColorPattern.FindAllStringSubmatch(q, -1) {
		add(m[1] + " " + m[2])
	}

	// Base colors are matched against the residual so "dark blue" does not
	// also yield a standalone "blue".
	tokens := tokenSet(compoundColorPattern.ReplaceAllString(q, " "))
	for _, color := range p.colors {
		if _, ok := tokens[color]; ok {
			add(color)
		}
	}

	return colors
}

// parseSizes recognizes the "size N" pattern, standalone size vocabulary
// tokens, and bare numbers in the 4-15 range treated as shoe sizes. The
// numeric heuristic is deliberately narrow; widening it needs a stated size
// domain.
func (p *ConstraintParser) parseSizes(q string) []string {
	seen := make(map[string]struct{})
	var sizes []string

	add := func(s string) {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			sizes = append(sizes, s)
		}
	}

	for _, m := range sizeNumberPattern.FindAllStringSubmatch(q, -1) {
		add(m[1])
	}

	tokens := tokenSet(q)
	for _, size := range p.sizeTokens {
		if _, ok := tokens[size]; ok {
			add(size)
		}
	}

	for token := range tokens {
		if v, err := strconv.ParseFloat(token, 64); err == nil && v >= 4 && v <= 15 {
			add(token)
		}
	}

	return sizes
}

func (p *ConstraintParser) parseGender(q string) string {
	tokens := tokenSet(q)
	for _, group := range p.genderTerms {
		for _, term := range group.terms {
			if _, ok := tokens[term]; ok {
				return group.gender
			}
		}
	}
	return ""
}

func (p *ConstraintParser) matchVocabulary(q string, vocabulary []string) []string {
	tokens := tokenSet(q)
	var matches []string
	for _, term := range vocabulary {
		if _, ok := tokens[term]; ok {
			matches = append(matches, term)
		}
	}
	return matches
}

// IsModelNumberToken reports whether a token looks like a product model code
// (alphanumeric with digits, or a long bare number).
func IsModelNumberToken(token string) bool {
	return modelNumberPattern.MatchString(strings.ToLower(token))
}

func tokenSet(q string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, token := range tokenPattern.FindAllString(q, -1) {
		tokens[token] = struct{}{}
		if trimmed := strings.Trim(token, "$.'-"); trimmed != token {
			tokens[trimmed] = struct{}{}
		}
	}
	return tokens
}
