package typesense

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/pkg/config"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/pkg/retry"
)

// ProductCategories is the fixed set of category indices. Each category is
// backed by its own collection so a search can target one index at a time.
var ProductCategories = []string{
	"fashion", "electronics", "books", "home", "sports", "beauty", "food",
}

// CollectionForCategory returns the collection name backing one category index.
func CollectionForCategory(category string) string {
	return "products_" + category
}

// Client represents a Typesense client
type Client struct {
	client *typesense.Client
}

// NewClient creates a new Typesense client with exponential backoff retry
func NewClient(cfg *config.TypesenseConfig) (*Client, error) {
	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)

	retryConfig := retry.DefaultConfig()
	err := retry.DoWithLog(
		context.Background(),
		retryConfig,
		"Typesense",
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_, err := client.Health(ctx, 2*time.Second)
			return err
		},
		func(attempt int, err error, nextDelay time.Duration) {
			log.Printf("Typesense connection attempt %d failed: %v. Retrying in %v...", attempt, err, nextDelay)
		},
	)

	if err != nil {
		return nil, fmt.Errorf("failed to connect to Typesense after retries: %w", err)
	}

	return &Client{client: client}, nil
}

// Client returns the underlying Typesense client
func (c *Client) Client() *typesense.Client {
	return c.client
}

// InitSchema ensures one product collection per category exists
func (c *Client) InitSchema(ctx context.Context) error {
	collections, err := c.client.Collections().Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve collections: %w", err)
	}

	existing := make(map[string]bool, len(collections))
	for _, col := range collections {
		existing[col.Name] = true
	}

	for _, category := range ProductCategories {
		name := CollectionForCategory(category)
		if existing[name] {
			continue
		}

		schema := &api.CollectionSchema{
			Name: name,
			Fields: []api.Field{
				{Name: "id", Type: "string"},
				{Name: "name", Type: "string"},
				{Name: "brand", Type: "string", Facet: pointer.True(), Optional: pointer.True()},
				{Name: "category", Type: "string", Facet: pointer.True()},
				{Name: "price", Type: "float", Facet: pointer.True()},
				{Name: "currency", Type: "string", Optional: pointer.True()},
				{Name: "image_url", Type: "string", Optional: pointer.True()},
				{Name: "product_url", Type: "string", Optional: pointer.True()},
				{Name: "colors", Type: "string[]", Facet: pointer.True(), Optional: pointer.True()},
				{Name: "styles", Type: "string[]", Facet: pointer.True(), Optional: pointer.True()},
				{Name: "description", Type: "string", Optional: pointer.True()},
				{Name: "created_at", Type: "int64"},
			},
			DefaultSortingField: pointer.String("created_at"),
		}

		if _, err := c.client.Collections().Create(ctx, schema); err != nil {
			return fmt.Errorf("failed to create collection %s: %w", name, err)
		}
		log.Printf("Created Typesense collection %q", name)
	}

	return nil
}
