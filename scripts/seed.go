package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/adapters/search"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/entities"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/infrastructure/clients/postgres"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/infrastructure/clients/typesense"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/pkg/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS interaction_events (
	id         TEXT PRIMARY KEY,
	event_type TEXT NOT NULL,
	product_id TEXT NOT NULL DEFAULT '',
	timestamp  TIMESTAMPTZ NOT NULL,
	context    TEXT NOT NULL DEFAULT '{}',
	weight     DOUBLE PRECISION NOT NULL DEFAULT 0,
	source     TEXT NOT NULL DEFAULT 'standalone-app'
);
CREATE INDEX IF NOT EXISTS idx_interaction_events_timestamp ON interaction_events (timestamp DESC);

CREATE TABLE IF NOT EXISTS user_profile (
	id         TEXT PRIMARY KEY,
	profile    TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS search_log (
	id              TEXT PRIMARY KEY,
	query           TEXT NOT NULL,
	effective_query TEXT NOT NULL DEFAULT '',
	categories      TEXT NOT NULL DEFAULT '',
	result_count    INTEGER NOT NULL DEFAULT 0,
	latency_ms      BIGINT NOT NULL DEFAULT 0,
	image_keywords  TEXT NOT NULL DEFAULT '',
	image_category  TEXT NOT NULL DEFAULT '',
	session_id      TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_search_log_created_at ON search_log (created_at DESC);
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pgClient.Close()

	ctx := context.Background()

	if os.Getenv("RESET_DB") == "true" {
		log.Println("RESET_DB=true detected, truncating tables before seeding")
		if _, err := pgClient.DB().ExecContext(ctx, `
			DROP TABLE IF EXISTS interaction_events, user_profile, search_log
		`); err != nil {
			log.Fatalf("Failed to reset tables: %v", err)
		}
	}

	if _, err := pgClient.DB().ExecContext(ctx, schema); err != nil {
		log.Fatalf("Failed to create schema: %v", err)
	}
	log.Println("Database schema ready")

	tsClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		log.Fatalf("Failed to connect to Typesense: %v", err)
	}
	if err := tsClient.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize Typesense schema: %v", err)
	}

	searchRepo := search.NewTypesenseAdapter(tsClient)
	now := time.Now()

	products := []*entities.Product{
		{ID: "fash-001", Name: "Classic White Leather Sneakers", Brand: "Nike", Category: "fashion", Price: 89.99, Currency: "USD", Colors: []string{"white"}, Styles: []string{"casual"}, Description: "Low-top leather sneakers for everyday wear"},
		{ID: "fash-002", Name: "Retro Canvas Sneakers", Brand: "Converse", Category: "fashion", Price: 59.99, Currency: "USD", Colors: []string{"red"}, Styles: []string{"vintage", "casual"}, Description: "Red canvas high-tops"},
		{ID: "fash-003", Name: "Women's Running Shoes", Brand: "Adidas", Category: "fashion", Price: 119.99, Currency: "USD", Colors: []string{"black", "pink"}, Styles: []string{"sporty"}, Description: "Lightweight women's road running shoes"},
		{ID: "fash-004", Name: "Men's Wool Overcoat", Brand: "Uniqlo", Category: "fashion", Price: 149.99, Currency: "USD", Colors: []string{"navy"}, Styles: []string{"formal", "classic"}, Description: "Men's tailored wool coat"},
		{ID: "elec-001", Name: "Wireless Noise Cancelling Headphones WH1000XM5", Brand: "Sony", Category: "electronics", Price: 349.99, Currency: "USD", Colors: []string{"black"}, Description: "Over-ear wireless headphones with ANC"},
		{ID: "elec-002", Name: "Compact Mirrorless Camera", Brand: "Canon", Category: "electronics", Price: 799.0, Currency: "USD", Description: "24MP mirrorless camera with kit lens"},
		{ID: "elec-003", Name: "Mechanical Keyboard", Brand: "Logitech", Category: "electronics", Price: 129.0, Currency: "USD", Description: "Tenkeyless mechanical keyboard, tactile switches"},
		{ID: "book-001", Name: "The Pragmatic Programmer", Category: "books", Price: 39.99, Currency: "USD", Description: "Classic software engineering book"},
		{ID: "home-001", Name: "Cast Iron Dutch Oven", Category: "home", Price: 89.0, Currency: "USD", Colors: []string{"red"}, Description: "5.5 quart enameled cast iron pot"},
		{ID: "sport-001", Name: "Yoga Mat", Category: "sports", Price: 29.99, Currency: "USD", Colors: []string{"purple"}, Description: "Non-slip 6mm yoga mat"},
		{ID: "beauty-001", Name: "Vitamin C Face Serum", Category: "beauty", Price: 24.99, Currency: "USD", Description: "Brightening daily serum"},
		{ID: "food-001", Name: "Single Origin Espresso Beans", Category: "food", Price: 18.5, Currency: "USD", Description: "Medium roast, 1kg bag"},
	}

	for i, p := range products {
		p.ProductURL = "https://shop.example.com/products/" + p.ID
		p.ImageURL = "https://images.example.com/" + p.ID + ".jpg"
		p.CreatedAt = now.Add(time.Duration(-i) * time.Hour)
		if err := searchRepo.Index(ctx, p); err != nil {
			log.Fatalf("Failed to index %s: %v", p.ID, err)
		}
	}

	log.Printf("Seeded %d products across %d category indices", len(products), len(searchRepo.Categories()))
}
