package entities

// PriceRange is an optional-bound price constraint extracted from a query.
type PriceRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// ParsedConstraints holds the structured shopping constraints extracted from
// one free-text query. Absent fields mean the constraint was not present.
// Transient; created fresh per search call and never persisted as-is.
type ParsedConstraints struct {
	PriceRange       *PriceRange `json:"price_range,omitempty"`
	Colors           []string    `json:"colors,omitempty"`
	Styles           []string    `json:"styles,omitempty"`
	Sizes            []string    `json:"sizes,omitempty"`
	Gender           string      `json:"gender,omitempty"`
	ProductKeywords  []string    `json:"product_keywords,omitempty"`
	OtherConstraints []string    `json:"other_constraints,omitempty"`
}

// IsEmpty reports whether no constraint of any type was extracted.
func (c ParsedConstraints) IsEmpty() bool {
	return c.PriceRange == nil && len(c.Colors) == 0 && len(c.Styles) == 0 &&
		len(c.Sizes) == 0 && c.Gender == "" && len(c.ProductKeywords) == 0 &&
		len(c.OtherConstraints) == 0
}

// HasSignal reports whether the query carried explicit constraint language
// (price, color or style). Used to decide whether a text caption should be
// concatenated with image-derived keywords.
func (c ParsedConstraints) HasSignal() bool {
	return c.PriceRange != nil || len(c.Colors) > 0 || len(c.Styles) > 0
}
