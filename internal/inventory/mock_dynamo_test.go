package inventory

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/meridian-retail/storefront/internal/catalog"
)

// mockDynamo stores items per table in a nested map and implements just
// enough of GetItem and TransactWriteItems for the inventory writers:
// conditional updates of the form
//
//	SET stock = stock ± :q, version = version + :one, last_updated = :ts
//
// guarded by "stock >= :q AND version = :v" or "version = :v".
// Conditions are verified across the whole batch before any write lands,
// mirroring the store's all-or-nothing contract.
type mockDynamo struct {
	mu     sync.Mutex
	tables map[string]map[string]map[string]types.AttributeValue

	transactCalls int
	forceCancel   bool
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{tables: map[string]map[string]map[string]types.AttributeValue{}}
}

func (m *mockDynamo) seed(t *testing.T, table string, rec catalog.InventoryRecord) {
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

func (m *mockDynamo) stock(t *testing.T, table, productID string) int {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.tables[table][productID]
	if !ok {
		t.Fatalf("no item %s in %s", productID, table)
	}
	return numAttr(t, item["stock"])
}

func (m *mockDynamo) version(t *testing.T, table, productID string) int {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.tables[table][productID]
	if !ok {
		t.Fatalf("no item %s in %s", productID, table)
	}
	return numAttr(t, item["version"])
}

func numAttr(t *testing.T, av types.AttributeValue) int {
	t.Helper()
	n, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		t.Fatalf("attribute is not a number: %#v", av)
	}
	v, err := strconv.Atoi(n.Value)
	if err != nil {
		t.Fatalf("parse number attribute: %v", err)
	}
	return v
}

func (m *mockDynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
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

func (m *mockDynamo) TransactWriteItems(ctx context.Context, params *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactCalls++
	if m.forceCancel {
		return nil, &types.TransactionCanceledException{}
	}

	// first pass: verify every condition before touching anything
	for _, ti := range params.TransactItems {
		u := ti.Update
		if u == nil {
			return nil, errors.New("mock only supports Update transact items")
		}
		item, q, _, v, err := m.resolveUpdate(u)
		if err != nil {
			return nil, err
		}
		cond := *u.ConditionExpression
		curStock := mustNum(item["stock"])
		curVersion := mustNum(item["version"])
		if strings.Contains(cond, "stock >= :q") && curStock < q {
			return nil, &types.TransactionCanceledException{}
		}
		if curVersion != v {
			return nil, &types.TransactionCanceledException{}
		}
	}

	// second pass: apply all updates
	for _, ti := range params.TransactItems {
		u := ti.Update
		item, q, _, _, err := m.resolveUpdate(u)
		if err != nil {
			return nil, err
		}
		delta := q
		if strings.Contains(*u.UpdateExpression, "stock - :q") {
			delta = -q
		}
		item["stock"] = &types.AttributeValueMemberN{Value: strconv.Itoa(mustNum(item["stock"]) + delta)}
		item["version"] = &types.AttributeValueMemberN{Value: strconv.Itoa(mustNum(item["version"]) + 1)}
		item["last_updated"] = u.ExpressionAttributeValues[":ts"]
	}

	return &dyn.TransactWriteItemsOutput{}, nil
}

// resolveUpdate fetches the targeted item and decodes :q, :one, :v.
func (m *mockDynamo) resolveUpdate(u *types.Update) (map[string]types.AttributeValue, int, int, int, error) {
	keyAttr, ok := u.Key["product_id"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, 0, 0, 0, errors.New("missing product_id in transact update")
	}
	item, ok := m.tables[*u.TableName][keyAttr.Value]
	if !ok {
		return nil, 0, 0, 0, &types.TransactionCanceledException{}
	}
	q := mustNum(u.ExpressionAttributeValues[":q"])
	one := mustNum(u.ExpressionAttributeValues[":one"])
	v := mustNum(u.ExpressionAttributeValues[":v"])
	return item, q, one, v, nil
}

func mustNum(av types.AttributeValue) int {
	n, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return 0
	}
	v, _ := strconv.Atoi(n.Value)
	return v
}

func (m *mockDynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	return nil, errors.New("unexpected put")
}

func (m *mockDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	return nil, errors.New("unexpected update")
}

func (m *mockDynamo) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	return nil, errors.New("unexpected query")
}
