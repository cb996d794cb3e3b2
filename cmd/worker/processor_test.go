package main

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	awsDynamo "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"

	"github.com/meridian-retail/storefront/internal/awsx"
	"github.com/meridian-retail/storefront/internal/config"
	"github.com/meridian-retail/storefront/internal/orders"
)

// mockDynamo backs the orders table (keyed by order_id) and the promo usage
// table (keyed by customer_id), honouring the conditional status updates and
// the two-step usage increment the worker relies on.
type mockDynamo struct {
	tables map[string]map[string]map[string]types.AttributeValue
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{
		tables: map[string]map[string]map[string]types.AttributeValue{
			"orders":      {},
			"promo_usage": {},
		},
	}
}

func keyOf(key map[string]types.AttributeValue) string {
	if v, ok := key["order_id"]; ok {
		return v.(*types.AttributeValueMemberS).Value
	}
	return key["customer_id"].(*types.AttributeValueMemberS).Value
}

func (m *mockDynamo) GetItem(_ context.Context, in *awsDynamo.GetItemInput, _ ...func(*awsDynamo.Options)) (*awsDynamo.GetItemOutput, error) {
	item, ok := m.tables[*in.TableName][keyOf(in.Key)]
	if !ok {
		return &awsDynamo.GetItemOutput{}, nil
	}
	return &awsDynamo.GetItemOutput{Item: item}, nil
}

func (m *mockDynamo) PutItem(_ context.Context, in *awsDynamo.PutItemInput, _ ...func(*awsDynamo.Options)) (*awsDynamo.PutItemOutput, error) {
	m.tables[*in.TableName][keyOf(in.Item)] = in.Item
	return &awsDynamo.PutItemOutput{}, nil
}

func (m *mockDynamo) UpdateItem(_ context.Context, in *awsDynamo.UpdateItemInput, _ ...func(*awsDynamo.Options)) (*awsDynamo.UpdateItemOutput, error) {
	table := m.tables[*in.TableName]
	k := keyOf(in.Key)
	item, ok := table[k]
	if !ok {
		item = map[string]types.AttributeValue{}
		for name, av := range in.Key {
			item[name] = av
		}
		table[k] = item
	}

	expr := *in.UpdateExpression
	switch {
	case strings.Contains(expr, "#s = :new"):
		if in.ConditionExpression != nil {
			expected := in.ExpressionAttributeValues[":expected"].(*types.AttributeValueMemberS).Value
			cur, _ := item["status"].(*types.AttributeValueMemberS)
			if cur == nil || cur.Value != expected {
				return nil, &types.ConditionalCheckFailedException{}
			}
		}
		item["status"] = in.ExpressionAttributeValues[":new"]
	case strings.Contains(expr, "codes = if_not_exists"):
		if _, ok := item["codes"]; !ok {
			item["codes"] = &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{}}
		}
	case strings.Contains(expr, "codes.#c"):
		codes := item["codes"].(*types.AttributeValueMemberM).Value
		name := in.ExpressionAttributeNames["#c"]
		n := 0
		if cur, ok := codes[name].(*types.AttributeValueMemberN); ok {
			n, _ = strconv.Atoi(cur.Value)
		}
		codes[name] = &types.AttributeValueMemberN{Value: strconv.Itoa(n + 1)}
	}
	return &awsDynamo.UpdateItemOutput{}, nil
}

func (m *mockDynamo) Query(_ context.Context, _ *awsDynamo.QueryInput, _ ...func(*awsDynamo.Options)) (*awsDynamo.QueryOutput, error) {
	return &awsDynamo.QueryOutput{}, nil
}

func (m *mockDynamo) TransactWriteItems(_ context.Context, _ *awsDynamo.TransactWriteItemsInput, _ ...func(*awsDynamo.Options)) (*awsDynamo.TransactWriteItemsOutput, error) {
	return &awsDynamo.TransactWriteItemsOutput{}, nil
}

func testConfig() config.Config {
	return config.Config{
		OrdersTable:     "orders",
		PromoCodesTable: "promo_codes",
		PromoUsageTable: "promo_usage",
	}
}

func seedOrder(t *testing.T, m *mockDynamo, id string, status orders.Status, promoCode string) {
	t.Helper()
	o := orders.Order{OrderID: id, CustomerID: "c1", Status: status, PromoCode: promoCode}
	item, err := attributevalue.MarshalMap(o)
	if err != nil {
		t.Fatalf("marshal order: %v", err)
	}
	m.tables["orders"][id] = item
}

func placedEvent(t *testing.T, msg awsx.OrderPlacedMessage) events.SQSEvent {
	t.Helper()
	body, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal message: %v", err)
	}
	return events.SQSEvent{Records: []events.SQSMessage{{Body: string(body)}}}
}

func orderStatus(t *testing.T, m *mockDynamo, id string) orders.Status {
	t.Helper()
	s, ok := m.tables["orders"][id]["status"].(*types.AttributeValueMemberS)
	if !ok {
		t.Fatalf("order %s has no status", id)
	}
	return orders.Status(s.Value)
}

func usageCount(m *mockDynamo, customerID, code string) int {
	item, ok := m.tables["promo_usage"][customerID]
	if !ok {
		return 0
	}
	codes, ok := item["codes"].(*types.AttributeValueMemberM)
	if !ok {
		return 0
	}
	n, ok := codes.Value[code].(*types.AttributeValueMemberN)
	if !ok {
		return 0
	}
	v, _ := strconv.Atoi(n.Value)
	return v
}

func TestWorkerCompletesOrderAndRecordsRedemption(t *testing.T) {
	m := newMockDynamo()
	seedOrder(t, m, "o1", orders.StatusPending, "spring10")
	p := NewProcessor(m, testConfig(), zerolog.Nop())

	ev := placedEvent(t, awsx.OrderPlacedMessage{OrderID: "o1", CustomerID: "c1", PromoCode: "spring10"})
	if err := p.Handle(context.Background(), ev); err != nil {
		t.Fatalf("unexpected worker error: %v", err)
	}

	if got := orderStatus(t, m, "o1"); got != orders.StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", got)
	}
	if got := usageCount(m, "c1", "spring10"); got != 1 {
		t.Fatalf("expected usage 1, got %d", got)
	}
}

func TestWorkerDropsDuplicateDelivery(t *testing.T) {
	m := newMockDynamo()
	seedOrder(t, m, "o1", orders.StatusPending, "spring10")
	p := NewProcessor(m, testConfig(), zerolog.Nop())

	ev := placedEvent(t, awsx.OrderPlacedMessage{OrderID: "o1", CustomerID: "c1", PromoCode: "spring10"})
	if err := p.Handle(context.Background(), ev); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := p.Handle(context.Background(), ev); err != nil {
		t.Fatalf("duplicate delivery must be swallowed, got %v", err)
	}

	if got := usageCount(m, "c1", "spring10"); got != 1 {
		t.Fatalf("duplicate delivery must not double-count usage, got %d", got)
	}
}

func TestWorkerResumesStuckProcessingOrder(t *testing.T) {
	m := newMockDynamo()
	// an earlier attempt took the order to PROCESSING and died before
	// recording the redemption; the redelivery must finish the job
	seedOrder(t, m, "o1", orders.StatusProcessing, "spring10")
	p := NewProcessor(m, testConfig(), zerolog.Nop())

	ev := placedEvent(t, awsx.OrderPlacedMessage{OrderID: "o1", CustomerID: "c1", PromoCode: "spring10"})
	if err := p.Handle(context.Background(), ev); err != nil {
		t.Fatalf("redelivery of a stuck order must succeed, got %v", err)
	}

	if got := orderStatus(t, m, "o1"); got != orders.StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", got)
	}
	if got := usageCount(m, "c1", "spring10"); got != 1 {
		t.Fatalf("expected usage 1, got %d", got)
	}
}

func TestWorkerSkipsCancelledOrder(t *testing.T) {
	m := newMockDynamo()
	seedOrder(t, m, "o1", orders.StatusCancelled, "")
	p := NewProcessor(m, testConfig(), zerolog.Nop())

	ev := placedEvent(t, awsx.OrderPlacedMessage{OrderID: "o1", CustomerID: "c1"})
	if err := p.Handle(context.Background(), ev); err != nil {
		t.Fatalf("cancelled order should be skipped, got %v", err)
	}
	if got := orderStatus(t, m, "o1"); got != orders.StatusCancelled {
		t.Fatalf("cancelled order must not change status, got %s", got)
	}
}

func TestWorkerErrorsOnUnknownOrder(t *testing.T) {
	m := newMockDynamo()
	p := NewProcessor(m, testConfig(), zerolog.Nop())

	ev := placedEvent(t, awsx.OrderPlacedMessage{OrderID: "ghost", CustomerID: "c1"})
	if err := p.Handle(context.Background(), ev); err == nil {
		t.Fatal("expected error for unknown order")
	}
}

func TestWorkerWithoutPromoSkipsUsage(t *testing.T) {
	m := newMockDynamo()
	seedOrder(t, m, "o1", orders.StatusPending, "")
	p := NewProcessor(m, testConfig(), zerolog.Nop())

	ev := placedEvent(t, awsx.OrderPlacedMessage{OrderID: "o1", CustomerID: "c1"})
	if err := p.Handle(context.Background(), ev); err != nil {
		t.Fatalf("unexpected worker error: %v", err)
	}
	if len(m.tables["promo_usage"]) != 0 {
		t.Fatal("no usage record should be written without a promo code")
	}
}
