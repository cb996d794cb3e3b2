package promo

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/meridian-retail/storefront/internal/awsx"
)

// Store encapsulates promo code and per-customer usage operations.
type Store struct {
	client     awsx.DynamoDBAPI
	codesTable string
	usageTable string
}

// NewStore returns a Store bound to the codes and usage tables.
func NewStore(client awsx.DynamoDBAPI, codesTable, usageTable string) *Store {
	return &Store{
		client:     client,
		codesTable: codesTable,
		usageTable: usageTable,
	}
}

// GetCode fetches a promo code, folding case. Returns (nil, nil) if absent.
func (s *Store) GetCode(ctx context.Context, code string) (*Code, error) {
	key := strings.ToLower(strings.TrimSpace(code))
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.codesTable,
		Key: map[string]types.AttributeValue{
			"code": &types.AttributeValueMemberS{Value: key},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get promo code: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var c Code
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, fmt.Errorf("unmarshal promo code: %w", err)
	}
	return &c, nil
}

// Usage returns the customer's redemption counts keyed by code.
// A customer with no usage record gets an empty map.
func (s *Store) Usage(ctx context.Context, customerID string) (map[string]int, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.usageTable,
		Key: map[string]types.AttributeValue{
			"customer_id": &types.AttributeValueMemberS{Value: customerID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get promo usage: %w", err)
	}
	if len(out.Item) == 0 {
		return map[string]int{}, nil
	}

	var rec struct {
		Codes map[string]int `dynamodbav:"codes"`
	}
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal promo usage: %w", err)
	}
	if rec.Codes == nil {
		rec.Codes = map[string]int{}
	}
	return rec.Codes, nil
}

// IncrementUsage bumps the customer's redemption count for a code by one.
// Called by the fulfillment worker when an order completes; the checkout saga
// itself never writes usage. The codes map is created on first use, so the
// increment takes two updates for a brand-new customer record.
func (s *Store) IncrementUsage(ctx context.Context, customerID, code string) error {
	key := map[string]types.AttributeValue{
		"customer_id": &types.AttributeValueMemberS{Value: customerID},
	}

	// ensure the codes map exists before addressing into it
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:        &s.usageTable,
		Key:              key,
		UpdateExpression: awsString("SET codes = if_not_exists(codes, :empty)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":empty": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{}},
		},
	})
	if err != nil {
		return fmt.Errorf("init promo usage: %w", err)
	}

	_, err = s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                &s.usageTable,
		Key:                      key,
		UpdateExpression:         awsString("SET codes.#c = if_not_exists(codes.#c, :zero) + :inc"),
		ExpressionAttributeNames: map[string]string{"#c": strings.ToLower(strings.TrimSpace(code))},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":zero": &types.AttributeValueMemberN{Value: "0"},
			":inc":  &types.AttributeValueMemberN{Value: "1"},
		},
	})
	if err != nil {
		return fmt.Errorf("increment promo usage: %w", err)
	}
	return nil
}

func awsString(s string) *string { return &s }
