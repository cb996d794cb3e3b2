package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/meridian-retail/storefront/internal/awsx"
)

// ErrProductNotFound indicates a product reference resolved to neither catalog.
var ErrProductNotFound = errors.New("product not found in any catalog")

// Store resolves product references across the standard and promotional
// catalog tables. It is read-only; stock writes go through the inventory
// committer and compensator.
type Store struct {
	client        awsx.DynamoDBAPI
	standardTable string
	promoTable    string
}

// NewStore returns a Store bound to the two catalog tables.
func NewStore(client awsx.DynamoDBAPI, standardTable, promoTable string) *Store {
	return &Store{
		client:        client,
		standardTable: standardTable,
		promoTable:    promoTable,
	}
}

// Resolve probes the standard catalog first, then the promotional catalog,
// and returns the record tagged with the catalog it was found in.
// Returns ErrProductNotFound when the reference is absent from both.
func (s *Store) Resolve(ctx context.Context, productID string) (*Location, error) {
	rec, err := s.getRecord(ctx, s.standardTable, productID)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return &Location{Catalog: CatalogStandard, Record: *rec}, nil
	}

	rec, err = s.getRecord(ctx, s.promoTable, productID)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return &Location{Catalog: CatalogPromotional, Record: *rec}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
}

// Get reads the current record straight from the table the catalog tag names.
// The committer and compensator use it to re-read stock at write time without
// re-probing both catalogs. Returns (nil, nil) if the record has vanished.
func (s *Store) Get(ctx context.Context, c Catalog, productID string) (*InventoryRecord, error) {
	return s.getRecord(ctx, s.TableFor(c), productID)
}

// TableFor maps a catalog tag back to its table name. The inventory
// committer and compensator use it to address records resolved here.
func (s *Store) TableFor(c Catalog) string {
	if c == CatalogPromotional {
		return s.promoTable
	}
	return s.standardTable
}

func (s *Store) getRecord(ctx context.Context, table, productID string) (*InventoryRecord, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &table,
		Key: map[string]types.AttributeValue{
			"product_id": &types.AttributeValueMemberS{Value: productID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rec InventoryRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal inventory record: %w", err)
	}
	return &rec, nil
}
