package entities

import (
	"time"
)

// EventType classifies a user interaction with a product or search.
type EventType string

const (
	EventSearch EventType = "search"
	EventView   EventType = "view"
	EventClick  EventType = "click"
	EventSave   EventType = "save"
	EventRemove EventType = "remove"
)

// EventSource identifies which surface produced an interaction event.
// Events from the read-only integration never count toward learning.
type EventSource string

const (
	SourceStandaloneApp       EventSource = "standalone-app"
	SourceReadOnlyIntegration EventSource = "read-only-integration"
)

// InteractionContext is the free-form bag attached to an interaction event.
type InteractionContext struct {
	SearchQuery      string   `json:"search_query,omitempty"`
	ImageFeatures    []string `json:"image_features,omitempty"`
	TimeSpentSeconds float64  `json:"time_spent,omitempty"`
	Category         string   `json:"category,omitempty"`
	Brand            string   `json:"brand,omitempty"`
	Price            float64  `json:"price,omitempty"`
	URL              string   `json:"url,omitempty"`
}

// InteractionEvent is an immutable record of one user action. It is persisted
// append-only and only removed by an explicit learning-data reset.
type InteractionEvent struct {
	ID        string             `json:"id" db:"id"`
	EventType EventType          `json:"event_type" db:"event_type"`
	ProductID string             `json:"product_id,omitempty" db:"product_id"`
	Timestamp time.Time          `json:"timestamp" db:"timestamp"`
	Context   InteractionContext `json:"context" db:"-"`
	Weight    float64            `json:"weight" db:"weight"`
	Source    EventSource        `json:"source" db:"source"`
}
