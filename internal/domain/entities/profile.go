package entities

import (
	"time"
)

// PricePreference captures the learned price band of a user.
type PricePreference struct {
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	SweetSpot   float64 `json:"sweet_spot"`
	Flexibility float64 `json:"flexibility"`
}

// StylePreference accumulates signed weights for image-derived style features.
type StylePreference struct {
	Colors    map[string]float64 `json:"colors,omitempty"`
	Materials map[string]float64 `json:"materials,omitempty"`
	Occasions map[string]float64 `json:"occasions,omitempty"`
}

// ProductAffinity aggregates a user's history with one specific product.
type ProductAffinity struct {
	Weight float64 `json:"weight"`
	Count  int     `json:"count"`
}

// UserProfile is a derived aggregate, fully recomputable from the interaction
// event log. It is never hand-edited; given the same event window the
// recompute yields an identical profile.
//
// CategoryScores are normalized to roughly [-1, 1]: each category's signed
// weight sum divided by the absolute weight sum across all qualifying events.
// BrandAffinity stays unnormalized accumulated weight.
type UserProfile struct {
	CategoryScores     map[string]float64         `json:"category_scores"`
	BrandAffinity      map[string]float64         `json:"brand_affinity"`
	ProductHistory     map[string]ProductAffinity `json:"product_history,omitempty"`
	PricePreference    *PricePreference           `json:"price_preference,omitempty"`
	StylePreference    StylePreference            `json:"style_preference"`
	InteractionHistory map[EventType]int          `json:"interaction_history"`
	TotalEvents        int                        `json:"total_events"`
	ConfidenceLevel    float64                    `json:"confidence_level"`
	LastUpdated        time.Time                  `json:"last_updated"`
}

// NewUserProfile returns the zero-value default profile for a user with no
// qualifying interaction history.
func NewUserProfile() *UserProfile {
	return &UserProfile{
		CategoryScores:     map[string]float64{},
		BrandAffinity:      map[string]float64{},
		ProductHistory:     map[string]ProductAffinity{},
		StylePreference:    StylePreference{Colors: map[string]float64{}, Materials: map[string]float64{}, Occasions: map[string]float64{}},
		InteractionHistory: map[EventType]int{},
	}
}
