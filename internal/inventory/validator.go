package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/meridian-retail/storefront/internal/cart"
	"github.com/meridian-retail/storefront/internal/catalog"
)

// Shortage describes one cart line whose requested quantity exceeds the
// observed stock.
type Shortage struct {
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// ValidationResult aggregates every violation found in one pass, so the
// caller can present the complete list instead of the first failure.
// Locations carries the catalog resolution done during the pass; later
// stages reuse it rather than probing both catalogs again.
type ValidationResult struct {
	Insufficient []Shortage
	NotFound     []string
	Locations    map[string]catalog.Location
}

// OK reports whether every requested quantity was coverable by the stock
// observed during the pass.
func (r *ValidationResult) OK() bool {
	return len(r.Insufficient) == 0 && len(r.NotFound) == 0
}

// Validator performs the read-only stock precheck. The read is a snapshot:
// stock can change between this check and the commit, which re-checks.
type Validator struct {
	catalog *catalog.Store
}

// NewValidator returns a Validator reading through the given accessor.
func NewValidator(c *catalog.Store) *Validator {
	return &Validator{catalog: c}
}

// Validate resolves every item and compares requested quantity against the
// observed stock. It never mutates and never short-circuits.
func (v *Validator) Validate(ctx context.Context, items []cart.LineItem) (*ValidationResult, error) {
	result := &ValidationResult{
		Locations: make(map[string]catalog.Location, len(items)),
	}

	for _, item := range items {
		loc, err := v.catalog.Resolve(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				result.NotFound = append(result.NotFound, item.ProductID)
				continue
			}
			return nil, fmt.Errorf("resolve %s: %w", item.ProductID, err)
		}
		result.Locations[item.ProductID] = *loc

		if item.Quantity > loc.Record.Stock {
			result.Insufficient = append(result.Insufficient, Shortage{
				ProductID: item.ProductID,
				Requested: item.Quantity,
				Available: loc.Record.Stock,
			})
		}
	}

	return result, nil
}
