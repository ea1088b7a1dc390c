package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/entities"
	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/repositories"
	tsclient "github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/infrastructure/clients/typesense"
)

// TypesenseAdapter implements product search using Typesense, one collection
// per category index.
type TypesenseAdapter struct {
	client *tsclient.Client
}

var _ repositories.ProductSearchRepository = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

// Categories lists the configured category indices.
func (a *TypesenseAdapter) Categories() []string {
	return tsclient.ProductCategories
}

// Index upserts a product document into its category collection.
func (a *TypesenseAdapter) Index(ctx context.Context, product *entities.Product) error {
	document := map[string]interface{}{
		"id":          product.ID,
		"name":        product.Name,
		"brand":       product.Brand,
		"category":    product.Category,
		"price":       product.Price,
		"currency":    product.Currency,
		"image_url":   product.ImageURL,
		"product_url": product.ProductURL,
		"colors":      product.Colors,
		"styles":      product.Styles,
		"description": product.Description,
		"created_at":  product.CreatedAt.Unix(),
	}

	collection := tsclient.CollectionForCategory(product.Category)
	_, err := a.client.Client().Collection(collection).Documents().Upsert(ctx, document)
	if err != nil {
		return fmt.Errorf("failed to index product: %w", err)
	}

	return nil
}

// Search runs a full-text query against one category index.
func (a *TypesenseAdapter) Search(ctx context.Context, category, query string, params repositories.SearchParams) ([]*entities.Product, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		q = "*"
	}

	perPage := params.HitsPerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := params.Page
	if page <= 0 {
		page = 1
	}

	searchParams := &api.SearchCollectionParams{
		Q:       pointer.String(q),
		QueryBy: pointer.String("name,brand,description"),
		Page:    pointer.Int(page),
		PerPage: pointer.Int(perPage),
	}

	if filterBy := buildFilterBy(params); filterBy != "" {
		searchParams.FilterBy = pointer.String(filterBy)
	}
	if params.ExactMatch {
		searchParams.NumTypos = pointer.String("0")
	}

	collection := tsclient.CollectionForCategory(category)
	result, err := a.client.Client().Collection(collection).Documents().Search(ctx, searchParams)
	if err != nil {
		return nil, fmt.Errorf("failed to search products in %s: %w", category, err)
	}

	products := []*entities.Product{}
	if result.Hits == nil {
		return products, nil
	}
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		products = append(products, productFromDocument(*hit.Document))
	}

	return products, nil
}

// buildFilterBy translates structured search params into a Typesense filter
// expression.
func buildFilterBy(params repositories.SearchParams) string {
	var filters []string
	if params.BrandFilter != "" {
		filters = append(filters, fmt.Sprintf("brand:=%s", params.BrandFilter))
	}
	if params.PriceMin != nil {
		filters = append(filters, fmt.Sprintf("price:>=%g", *params.PriceMin))
	}
	if params.PriceMax != nil {
		filters = append(filters, fmt.Sprintf("price:<=%g", *params.PriceMax))
	}
	return strings.Join(filters, " && ")
}

// productFromDocument reconstructs a product entity from a Typesense hit.
// Typesense returns map[string]interface{}, so every field is cast safely.
func productFromDocument(doc map[string]interface{}) *entities.Product {
	product := &entities.Product{}

	if val, ok := doc["id"].(string); ok {
		product.ID = val
	}
	if val, ok := doc["name"].(string); ok {
		product.Name = val
	}
	if val, ok := doc["brand"].(string); ok {
		product.Brand = val
	}
	if val, ok := doc["category"].(string); ok {
		product.Category = val
	}
	if val, ok := doc["price"].(float64); ok {
		product.Price = val
	}
	if val, ok := doc["currency"].(string); ok {
		product.Currency = val
	}
	if val, ok := doc["image_url"].(string); ok {
		product.ImageURL = val
	}
	if val, ok := doc["product_url"].(string); ok {
		product.ProductURL = val
	}
	if val, ok := doc["created_at"].(float64); ok {
		product.CreatedAt = time.Unix(int64(val), 0)
	}
	product.Colors = stringSliceFromDocument(doc["colors"])
	product.Styles = stringSliceFromDocument(doc["styles"])
	if val, ok := doc["description"].(string); ok {
		product.Description = val
	}

	return product
}

func stringSliceFromDocument(raw interface{}) []string {
	values, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
