package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// readOnlyMock supports GetItem against table -> pkValue -> item maps.
// The accessor never writes; the remaining interface methods fail the test
// if they are ever reached.
type readOnlyMock struct {
	mu     sync.Mutex
	tables map[string]map[string]map[string]types.AttributeValue
	writes int
}

func newReadOnlyMock() *readOnlyMock {
	return &readOnlyMock{
		tables: map[string]map[string]map[string]types.AttributeValue{},
	}
}

func (m *readOnlyMock) seed(t *testing.T, table string, rec InventoryRecord) {
	t.Helper()
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		t.Fatalf("seed marshal: %v", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[table]; !ok {
		m.tables[table] = map[string]map[string]types.AttributeValue{}
	}
	m.tables[table][rec.ProductID] = item
}

func (m *readOnlyMock) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keyAttr, ok := params.Key["product_id"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, errors.New("missing product_id key")
	}
	item, ok := m.tables[*params.TableName][keyAttr.Value]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *readOnlyMock) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.writes++
	return nil, errors.New("unexpected write")
}

func (m *readOnlyMock) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.writes++
	return nil, errors.New("unexpected write")
}

func (m *readOnlyMock) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	return nil, errors.New("unexpected query")
}

func (m *readOnlyMock) TransactWriteItems(ctx context.Context, params *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	m.writes++
	return nil, errors.New("unexpected write")
}

func TestResolve_StandardCatalogFirst(t *testing.T) {
	mock := newReadOnlyMock()
	// same product id in both catalogs: the standard record must win
	mock.seed(t, "products", InventoryRecord{ProductID: "p-1", Stock: 5, Price: 10, Version: 1, LastUpdated: time.Now()})
	mock.seed(t, "promotions", InventoryRecord{ProductID: "p-1", Stock: 99, Price: 2, Version: 1, LastUpdated: time.Now()})

	s := NewStore(mock, "products", "promotions")
	loc, err := s.Resolve(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if loc.Catalog != CatalogStandard {
		t.Fatalf("expected standard catalog, got %s", loc.Catalog)
	}
	if loc.Record.Stock != 5 {
		t.Fatalf("expected stock 5 from standard record, got %d", loc.Record.Stock)
	}
}

func TestResolve_PromotionalFallback(t *testing.T) {
	mock := newReadOnlyMock()
	mock.seed(t, "promotions", InventoryRecord{ProductID: "deal-1", Stock: 3, Price: 7.5, Version: 2})

	s := NewStore(mock, "products", "promotions")
	loc, err := s.Resolve(context.Background(), "deal-1")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if loc.Catalog != CatalogPromotional {
		t.Fatalf("expected promotional catalog, got %s", loc.Catalog)
	}
}

func TestResolve_NotFoundInEitherCatalog(t *testing.T) {
	mock := newReadOnlyMock()
	s := NewStore(mock, "products", "promotions")

	_, err := s.Resolve(context.Background(), "ghost")
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if mock.writes != 0 {
		t.Fatalf("resolution must be side-effect free, saw %d writes", mock.writes)
	}
}

func TestTableFor(t *testing.T) {
	s := NewStore(newReadOnlyMock(), "products", "promotions")
	if got := s.TableFor(CatalogStandard); got != "products" {
		t.Fatalf("TableFor standard = %s", got)
	}
	if got := s.TableFor(CatalogPromotional); got != "promotions" {
		t.Fatalf("TableFor promotional = %s", got)
	}
}
