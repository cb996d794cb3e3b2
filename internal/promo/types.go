package promo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ReasonCode explains why a promo code was rejected. Rejections are returned
// values the UI renders, never errors.
type ReasonCode string

const (
	ReasonInvalidCode                     ReasonCode = "InvalidCode"
	ReasonUsageLimitReached               ReasonCode = "UsageLimitReached"
	ReasonExpired                         ReasonCode = "Expired"
	ReasonNotApplicableToPromotionalItems ReasonCode = "NotApplicableToPromotionalItems"
)

// Allowance is the number of times one customer may redeem a code.
// Zero (or absent, or the literal "unlimited" in the stored attribute) means
// no limit.
type Allowance int

// Unlimited reports whether the allowance places no cap on redemptions.
func (a Allowance) Unlimited() bool { return a <= 0 }

// UnmarshalDynamoDBAttributeValue accepts either a number or the legacy
// string sentinel "unlimited" for the allowed_redemptions attribute.
func (a *Allowance) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	switch v := av.(type) {
	case *types.AttributeValueMemberN:
		n, err := strconv.Atoi(v.Value)
		if err != nil {
			return fmt.Errorf("parse allowed_redemptions: %w", err)
		}
		*a = Allowance(n)
		return nil
	case *types.AttributeValueMemberS:
		if strings.EqualFold(strings.TrimSpace(v.Value), "unlimited") {
			*a = 0
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v.Value))
		if err != nil {
			return fmt.Errorf("parse allowed_redemptions %q: %w", v.Value, err)
		}
		*a = Allowance(n)
		return nil
	case *types.AttributeValueMemberNULL:
		*a = 0
		return nil
	default:
		return fmt.Errorf("unsupported allowed_redemptions attribute type %T", av)
	}
}

// MarshalDynamoDBAttributeValue stores the allowance as a number; unlimited
// allowances are stored as 0.
func (a Allowance) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return &types.AttributeValueMemberN{Value: strconv.Itoa(int(a))}, nil
}

// Code is the shape persisted in the promo codes table. Codes are stored
// lowercase; lookups fold case before hitting the table.
type Code struct {
	Code               string    `dynamodbav:"code"` // PK, lowercase
	DiscountPercent    float64   `dynamodbav:"discount_percent"`
	AllowedRedemptions Allowance `dynamodbav:"allowed_redemptions,omitempty"`
	ExpiryDate         string    `dynamodbav:"expiry_date"` // date-only, 2006-01-02
}

// Result is the outcome of validating a code against a cart.
// When Accepted is false, Reason carries the rejection.
type Result struct {
	Accepted        bool       `json:"accepted"`
	DiscountPercent float64    `json:"discount_percent,omitempty"`
	Note            string     `json:"note,omitempty"`
	Reason          ReasonCode `json:"reason,omitempty"`
}
