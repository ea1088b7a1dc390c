package entities

import (
	"time"
)

// Product represents a single shoppable item as indexed in the search backend
type Product struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Brand       string    `json:"brand,omitempty" db:"brand"`
	Category    string    `json:"category" db:"category"`
	Price       float64   `json:"price" db:"price"`
	Currency    string    `json:"currency,omitempty" db:"currency"`
	ImageURL    string    `json:"image_url" db:"image_url"`
	ProductURL  string    `json:"product_url" db:"product_url"`
	Colors      []string  `json:"colors,omitempty" db:"-"`
	Styles      []string  `json:"styles,omitempty" db:"-"`
	Description string    `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
