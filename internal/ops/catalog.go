package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/nutrilog/internal/db"
	"github.com/hpungsan/nutrilog/internal/entry"
	"github.com/hpungsan/nutrilog/internal/errors"
)

// CatalogSetInput contains parameters for the SetCatalog operation.
// Setting CaloriesPerPortion makes quantities portion counts; otherwise
// they are grams.
type CatalogSetInput struct {
	ItemName           string
	CaloriesPer100g    *float64
	CaloriesPerPortion *float64
}

// CatalogOutput wraps a single catalog entry.
type CatalogOutput struct {
	Entry       entry.CatalogEntry `json:"entry"`
	PortionType entry.PortionType  `json:"portion_type"`
}

// SetCatalog creates or replaces the catalog entry for an item.
func SetCatalog(ctx context.Context, database *sql.DB, input CatalogSetInput) (*CatalogOutput, error) {
	c := entry.CatalogEntry{
		ItemName:           strings.TrimSpace(input.ItemName),
		CaloriesPer100g:    input.CaloriesPer100g,
		CaloriesPerPortion: input.CaloriesPerPortion,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := db.UpsertCatalog(ctx, database, c, nowFunc().Unix()); err != nil {
		return nil, err
	}
	return &CatalogOutput{Entry: c, PortionType: entry.PortionTypeOf(c)}, nil
}

// CatalogGetInput contains parameters for the GetCatalog operation.
type CatalogGetInput struct {
	ItemName string
}

// GetCatalog looks up one item in the configured catalog source.
func GetCatalog(ctx context.Context, src Sources, input CatalogGetInput) (*CatalogOutput, error) {
	if entry.NormalizeName(input.ItemName) == "" {
		return nil, errors.NewInvalidRequest("item_name is required")
	}
	if src.Catalog == nil {
		return nil, errors.NewNotFound(input.ItemName)
	}
	c, err := src.Catalog.GetCatalogEntry(ctx, input.ItemName)
	if err != nil {
		return nil, err
	}
	return &CatalogOutput{Entry: *c, PortionType: entry.PortionTypeOf(*c)}, nil
}

// CatalogListOutput contains the result of the ListCatalog operation.
type CatalogListOutput struct {
	Items []entry.CatalogEntry `json:"items"`
	Total int                  `json:"total"`
}

// ListCatalog returns every entry in the local catalog, ordered by name.
func ListCatalog(ctx context.Context, database *sql.DB) (*CatalogListOutput, error) {
	items, err := db.ListCatalog(ctx, database)
	if err != nil {
		return nil, err
	}
	return &CatalogListOutput{Items: items, Total: len(items)}, nil
}
