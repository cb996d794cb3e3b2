package inventory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/meridian-retail/storefront/internal/awsx"
	"github.com/meridian-retail/storefront/internal/cart"
	"github.com/meridian-retail/storefront/internal/catalog"
)

// ErrCommitConflict indicates the conditional batch write lost a race with a
// concurrent stock mutation. Nothing was written; the operation is safe to
// retry from a fresh re-read.
var ErrCommitConflict = errors.New("inventory write conflicted with a concurrent update")

// InsufficientStockError carries the full shortage list discovered at
// commit-time re-check. Nothing was written.
type InsufficientStockError struct {
	Shortages []Shortage
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %d item(s)", len(e.Shortages))
}

// AppliedDelta records one record's stock change so compensation and
// reconciliation logs can be driven from the same data.
type AppliedDelta struct {
	ProductID string          `json:"product_id"`
	Catalog   catalog.Catalog `json:"catalog"`
	Before    int             `json:"before"`
	After     int             `json:"after"`
}

// CommitResult reports the per-record deltas of a successful decrement.
type CommitResult struct {
	Applied []AppliedDelta
}

// writer holds what both the committer and the compensator need: the
// accessor for commit-time re-reads and the client for the batch write.
type writer struct {
	catalog *catalog.Store
	client  awsx.DynamoDBAPI
	nowFunc func() time.Time
}

// plannedWrite is one record's pending stock mutation, pinned to the stock
// and version read immediately before the batch write.
type plannedWrite struct {
	productID string
	cat       catalog.Catalog
	table     string
	quantity  int
	before    int
	version   int64
}

type direction int

const (
	decrement direction = iota
	increment
)

// plan re-reads each item's record from its resolved catalog and pins the
// observed stock and version. When checkStock is set it also re-checks
// coverage, aggregating shortages instead of failing on the first. A record
// that has vanished since resolution is reported as a shortage of its full
// requested quantity.
func (w *writer) plan(ctx context.Context, items []cart.LineItem, locs map[string]catalog.Location, checkStock bool) ([]plannedWrite, []Shortage, error) {
	plans := make([]plannedWrite, 0, len(items))
	var shortages []Shortage

	for _, item := range items {
		loc, ok := locs[item.ProductID]
		if !ok {
			return nil, nil, fmt.Errorf("product %s was not resolved before the write", item.ProductID)
		}
		fresh, err := w.catalog.Get(ctx, loc.Catalog, item.ProductID)
		if err != nil {
			return nil, nil, fmt.Errorf("re-read %s: %w", item.ProductID, err)
		}
		if fresh == nil {
			shortages = append(shortages, Shortage{ProductID: item.ProductID, Requested: item.Quantity})
			continue
		}
		if checkStock && fresh.Stock < item.Quantity {
			shortages = append(shortages, Shortage{
				ProductID: item.ProductID,
				Requested: item.Quantity,
				Available: fresh.Stock,
			})
			continue
		}
		plans = append(plans, plannedWrite{
			productID: item.ProductID,
			cat:       loc.Catalog,
			table:     w.catalog.TableFor(loc.Catalog),
			quantity:  item.Quantity,
			before:    fresh.Stock,
			version:   fresh.Version,
		})
	}

	return plans, shortages, nil
}

// apply issues the single atomic batch. dir selects decrement or increment;
// both are conditional on the version pinned by plan, and decrements
// additionally guard stock coverage so no record can go negative.
func (w *writer) apply(ctx context.Context, plans []plannedWrite, dir direction) error {
	ts := w.nowFunc().UTC().Format(time.RFC3339Nano)

	transactItems := make([]types.TransactWriteItem, 0, len(plans))
	for _, p := range plans {
		updateExpr := "SET stock = stock - :q, version = version + :one, last_updated = :ts"
		conditionExpr := "stock >= :q AND version = :v"
		if dir == increment {
			updateExpr = "SET stock = stock + :q, version = version + :one, last_updated = :ts"
			conditionExpr = "version = :v"
		}
		table := p.table
		transactItems = append(transactItems, types.TransactWriteItem{
			Update: &types.Update{
				TableName: &table,
				Key: map[string]types.AttributeValue{
					"product_id": &types.AttributeValueMemberS{Value: p.productID},
				},
				UpdateExpression:    &updateExpr,
				ConditionExpression: &conditionExpr,
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":q":   &types.AttributeValueMemberN{Value: strconv.Itoa(p.quantity)},
					":one": &types.AttributeValueMemberN{Value: "1"},
					":v":   &types.AttributeValueMemberN{Value: strconv.FormatInt(p.version, 10)},
					":ts":  &types.AttributeValueMemberS{Value: ts},
				},
			},
		})
	}

	_, err := w.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{
		TransactItems: transactItems,
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			return fmt.Errorf("%w: %v", ErrCommitConflict, err)
		}
		return fmt.Errorf("transact write: %w", err)
	}
	return nil
}

// Committer performs the all-or-nothing multi-record stock decrement.
type Committer struct {
	writer
}

// NewCommitter returns a Committer writing through the given client.
func NewCommitter(c *catalog.Store, client awsx.DynamoDBAPI) *Committer {
	return &Committer{writer{catalog: c, client: client, nowFunc: time.Now}}
}

// Commit re-reads every item's current stock (not the validator's earlier
// snapshot), confirms coverage, and decrements all records in one atomic
// batch. If any single item fails the re-check, nothing is written and the
// full shortage list comes back as an *InsufficientStockError.
func (c *Committer) Commit(ctx context.Context, items []cart.LineItem, locs map[string]catalog.Location) (*CommitResult, error) {
	plans, shortages, err := c.plan(ctx, items, locs, true)
	if err != nil {
		return nil, err
	}
	if len(shortages) > 0 {
		return nil, &InsufficientStockError{Shortages: shortages}
	}

	if err := c.apply(ctx, plans, decrement); err != nil {
		return nil, err
	}

	result := &CommitResult{Applied: make([]AppliedDelta, 0, len(plans))}
	for _, p := range plans {
		result.Applied = append(result.Applied, AppliedDelta{
			ProductID: p.productID,
			Catalog:   p.cat,
			Before:    p.before,
			After:     p.before - p.quantity,
		})
	}
	return result, nil
}
