package entities

import (
	"time"
)

// SearchLogEntry represents one search interaction for analytics. One row is
// appended per search regardless of outcome.
type SearchLogEntry struct {
	ID             string    `json:"id" db:"id"`
	Query          string    `json:"query" db:"query"`
	EffectiveQuery string    `json:"effective_query" db:"effective_query"`
	Categories     []string  `json:"categories,omitempty" db:"-"`
	ResultCount    int       `json:"result_count" db:"result_count"`
	LatencyMs      int64     `json:"latency_ms" db:"latency_ms"`
	ImageKeywords  []string  `json:"image_keywords,omitempty" db:"-"`
	ImageCategory  string    `json:"image_category,omitempty" db:"image_category"`
	SessionID      string    `json:"session_id,omitempty" db:"session_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
