package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-retail/storefront/internal/awsx"
	"github.com/meridian-retail/storefront/internal/cart"
	"github.com/meridian-retail/storefront/internal/catalog"
)

// RevertResult reports the per-record deltas of a successful restore.
type RevertResult struct {
	Restored []AppliedDelta
}

// Compensator undoes a committed stock decrement by adding the originally
// requested quantities back in one atomic batch.
//
// Revert is NOT idempotent: invoking it twice for the same commit restores
// the stock twice. Callers must guarantee at-most-once invocation.
type Compensator struct {
	writer
}

// NewCompensator returns a Compensator writing through the given client.
func NewCompensator(c *catalog.Store, client awsx.DynamoDBAPI) *Compensator {
	return &Compensator{writer{catalog: c, client: client, nowFunc: time.Now}}
}

// Revert re-reads each record's current stock and adds back the requested
// quantity, all records in one all-or-nothing batch keyed on the versions
// just read.
func (c *Compensator) Revert(ctx context.Context, items []cart.LineItem, locs map[string]catalog.Location) (*RevertResult, error) {
	plans, missing, err := c.plan(ctx, items, locs, false)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		// a committed record has vanished; restoring the rest would leave a
		// partial compensation, so fail the whole batch for manual review
		return nil, fmt.Errorf("cannot restore %d record(s) that no longer exist", len(missing))
	}

	if err := c.apply(ctx, plans, increment); err != nil {
		return nil, err
	}

	result := &RevertResult{Restored: make([]AppliedDelta, 0, len(plans))}
	for _, p := range plans {
		result.Restored = append(result.Restored, AppliedDelta{
			ProductID: p.productID,
			Catalog:   p.cat,
			Before:    p.before,
			After:     p.before + p.quantity,
		})
	}
	return result, nil
}
