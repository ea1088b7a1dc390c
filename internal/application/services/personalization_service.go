package services

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/entities"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/repositories"
	apperrors "github.com/goodaymmm/shopping-for-algolia-personalized-sub000/pkg/errors"
)

const (
	baseScore      = 0.5
	categoryWeight = 0.4
	brandWeight    = 0.6
	styleWeight    = 0.1
	priceFitWeight = 0.1

	// A product the user has never touched gets a boosted category signal so
	// new items in a liked category surface.
	coldStartBoost = 1.2

	// Per-product history: a log-damped magnitude term plus a bonus for the
	// number of touches, so repeated touches outrank one large save.
	historyScale     = 0.25
	historyCap       = 0.3
	historyCountStep = 0.02
	historyCountCap  = 0.1

	// Damping never fully flattens ranking, even at near-zero confidence.
	confidenceFloor = 0.3

	viewTimeBonusCap = 0.2
)

var styleMaterials = map[string]struct{}{
	"leather": {}, "cotton": {}, "denim": {}, "suede": {}, "wool": {},
	"canvas": {}, "silk": {}, "linen": {}, "polyester": {}, "nylon": {},
}

var styleColors = map[string]struct{}{
	"black": {}, "white": {}, "red": {}, "blue": {}, "green": {},
	"yellow": {}, "pink": {}, "purple": {}, "orange": {}, "brown": {},
	"grey": {}, "gray": {}, "navy": {}, "beige": {}, "gold": {}, "silver": {},
}

// PersonalizationService owns the interaction event log and the profile
// derived from it: event ingestion, profile recomputation, product scoring
// and the learning-data reset.
type PersonalizationService struct {
	interactions repositories.InteractionRepository
	profiles     repositories.ProfileRepository
	eventWindow  int
}

// NewPersonalizationService creates a new personalization service.
// eventWindow bounds how many recent events a profile recompute reads.
func NewPersonalizationService(
	interactions repositories.InteractionRepository,
	profiles repositories.ProfileRepository,
	eventWindow int,
) *PersonalizationService {
	if eventWindow <= 0 {
		eventWindow = 1000
	}
	return &PersonalizationService{
		interactions: interactions,
		profiles:     profiles,
		eventWindow:  eventWindow,
	}
}

// ComputeWeight returns the learning weight of one event. Views earn a bonus
// for dwell time, capped so a left-open tab cannot dominate the profile.
// Removals carry a negative weight.
func ComputeWeight(event *entities.InteractionEvent) float64 {
	switch event.EventType {
	case entities.EventSearch:
		return 0.2
	case entities.EventView:
		bonus := event.Context.TimeSpentSeconds / 10 * 0.1
		if bonus > viewTimeBonusCap {
			bonus = viewTimeBonusCap
		}
		if bonus < 0 {
			bonus = 0
		}
		return 0.3 + bonus
	case entities.EventClick:
		return 0.5
	case entities.EventSave:
		return 1.0
	case entities.EventRemove:
		return -0.8
	default:
		return 0
	}
}

// RecordInteraction appends one event to the log and refreshes the derived
// profile. Events from the read-only integration are persisted for audit but
// excluded from learning.
func (s *PersonalizationService) RecordInteraction(ctx context.Context, event *entities.InteractionEvent) error {
	if event == nil {
		return apperrors.NewValidationError("interaction event is nil")
	}
	switch event.EventType {
	case entities.EventSearch, entities.EventView, entities.EventClick, entities.EventSave, entities.EventRemove:
	default:
		return apperrors.NewValidationError("unknown event type: " + string(event.EventType))
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Source == "" {
		event.Source = entities.SourceStandaloneApp
	}
	event.Weight = ComputeWeight(event)

	if err := s.interactions.Append(ctx, event); err != nil {
		return err
	}

	if err := s.RefreshProfile(ctx); err != nil {
		// The event is durably stored; the profile catches up on the next
		// recompute.
		log.Warn().Err(err).Str("event_type", string(event.EventType)).
			Msg("profile refresh after interaction failed")
	}

	return nil
}

// GetProfile returns the stored profile, or the zero-value default when
// nothing has been learned yet.
func (s *PersonalizationService) GetProfile(ctx context.Context) (*entities.UserProfile, error) {
	profile, err := s.profiles.Get(ctx)
	if apperrors.IsNotFound(err) {
		return entities.NewUserProfile(), nil
	}
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// RefreshProfile recomputes the profile from the recent event window and
// stores it.
func (s *PersonalizationService) RefreshProfile(ctx context.Context) error {
	events, err := s.interactions.Recent(ctx, s.eventWindow)
	if err != nil {
		return err
	}
	return s.profiles.Upsert(ctx, CalculateProfile(events))
}

// ResetLearningData deletes the whole event log and resets the profile to its
// zero default. This is the only mutation besides Append the event log sees.
func (s *PersonalizationService) ResetLearningData(ctx context.Context) error {
	if err := s.interactions.Truncate(ctx); err != nil {
		return err
	}
	if err := s.profiles.Upsert(ctx, entities.NewUserProfile()); err != nil {
		return err
	}
	log.Info().Msg("learning data reset")
	return nil
}

// CalculateProfile derives a profile from an event slice. Pure: the same
// events always produce the same profile, so LastUpdated comes from the
// newest event rather than the wall clock. Read-only integration events are
// skipped entirely.
func CalculateProfile(events []*entities.InteractionEvent) *entities.UserProfile {
	profile := entities.NewUserProfile()
	var latest time.Time
	var prices []float64
	var totalAbsWeight float64

	for _, event := range events {
		if event == nil || event.Source == entities.SourceReadOnlyIntegration {
			continue
		}

		weight := ComputeWeight(event)
		profile.InteractionHistory[event.EventType]++
		profile.TotalEvents++
		totalAbsWeight += math.Abs(weight)

		if event.Context.Category != "" {
			profile.CategoryScores[strings.ToLower(event.Context.Category)] += weight
		}
		if event.ProductID != "" {
			affinity := profile.ProductHistory[event.ProductID]
			affinity.Weight += weight
			affinity.Count++
			profile.ProductHistory[event.ProductID] = affinity
		}
		if event.Context.Brand != "" {
			profile.BrandAffinity[strings.ToLower(event.Context.Brand)] += weight
		}
		if event.Context.Price > 0 &&
			(event.EventType == entities.EventSave || event.EventType == entities.EventClick) {
			prices = append(prices, event.Context.Price)
		}

		for _, feature := range event.Context.ImageFeatures {
			feature = strings.ToLower(strings.TrimSpace(feature))
			if feature == "" {
				continue
			}
			switch {
			case isStyleColor(feature):
				profile.StylePreference.Colors[feature] += weight
			case isStyleMaterial(feature):
				profile.StylePreference.Materials[feature] += weight
			default:
				profile.StylePreference.Occasions[feature] += weight
			}
		}

		if event.Timestamp.After(latest) {
			latest = event.Timestamp
		}
	}

	// Category scores end up in roughly [-1, 1]; a category carrying every
	// positive event normalizes to 1.
	if totalAbsWeight > 0 {
		for category, sum := range profile.CategoryScores {
			profile.CategoryScores[category] = sum / totalAbsWeight
		}
	}

	profile.ConfidenceLevel = math.Min(1, float64(profile.TotalEvents)/10)
	profile.PricePreference = pricePreferenceFrom(prices)
	profile.LastUpdated = latest

	return profile
}

// ScoreProduct computes the personalization score in [0, 1]. A product with
// no profile signal scores exactly the 0.5 baseline. Raw signal is damped
// toward the baseline by the profile's confidence so a barely-trained profile
// cannot reorder results aggressively.
func ScoreProduct(product *entities.Product, profile *entities.UserProfile) float64 {
	if product == nil || profile == nil || profile.TotalEvents == 0 {
		return baseScore
	}

	raw := baseScore
	history, touched := profile.ProductHistory[product.ID]

	if score := profile.CategoryScores[strings.ToLower(product.Category)]; score != 0 {
		w := categoryWeight
		if !touched {
			w *= coldStartBoost
		}
		raw += w * squash(score)
	}

	if product.Brand != "" {
		if affinity := profile.BrandAffinity[strings.ToLower(product.Brand)]; affinity != 0 {
			raw += brandWeight * squash(affinity)
		}
	}

	if touched {
		raw += math.Min(historyCap, math.Log10(1+math.Abs(history.Weight))*historyScale)
		raw += math.Min(historyCountCap, historyCountStep*float64(history.Count))
	}

	for _, color := range product.Colors {
		if w := profile.StylePreference.Colors[strings.ToLower(color)]; w != 0 {
			raw += styleWeight * squash(w)
		}
	}

	if profile.PricePreference != nil && product.Price > 0 {
		raw += priceFit(product.Price, profile.PricePreference)
	}

	confidence := math.Max(confidenceFloor, profile.ConfidenceLevel)
	return clamp01(baseScore + (raw-baseScore)*confidence)
}

// RankProducts scores and sorts products, highest first. The sort is stable
// so backend relevance order breaks score ties.
func (s *PersonalizationService) RankProducts(products []*entities.Product, profile *entities.UserProfile) []entities.RankedProduct {
	ranked := make([]entities.RankedProduct, 0, len(products))
	for _, product := range products {
		ranked = append(ranked, entities.RankedProduct{
			Product: product,
			Score:   ScoreProduct(product, profile),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

func pricePreferenceFrom(prices []float64) *entities.PricePreference {
	if len(prices) == 0 {
		return nil
	}

	min, max, sum := prices[0], prices[0], 0.0
	for _, p := range prices {
		if p < min {
			min = p
		}
		if p > max {
			max = p
		}
		sum += p
	}
	mean := sum / float64(len(prices))

	flexibility := 0.0
	if mean > 0 && len(prices) > 1 {
		flexibility = (max - min) / (2 * mean)
	}

	return &entities.PricePreference{
		Min:         min,
		Max:         max,
		SweetSpot:   mean,
		Flexibility: flexibility,
	}
}

// priceFit rewards prices near the learned sweet spot and penalizes far
// outliers, within [-priceFitWeight, +priceFitWeight].
func priceFit(price float64, pref *entities.PricePreference) float64 {
	if pref.SweetSpot <= 0 {
		return 0
	}
	band := pref.SweetSpot * math.Max(pref.Flexibility, 0.1)
	distance := math.Abs(price-pref.SweetSpot) / band
	if distance > 2 {
		distance = 2
	}
	return priceFitWeight * (1 - distance)
}

// squash maps an unbounded accumulated weight into (-1, 1).
func squash(v float64) float64 {
	return v / (1 + math.Abs(v))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func isStyleColor(s string) bool {
	_, ok := styleColors[s]
	return ok
}

func isStyleMaterial(s string) bool {
	_, ok := styleMaterials[s]
	return ok
}
