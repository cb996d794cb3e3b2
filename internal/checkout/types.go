package checkout

import (
	"github.com/meridian-retail/storefront/internal/cart"
	"github.com/meridian-retail/storefront/internal/payment"
	"github.com/meridian-retail/storefront/internal/pricing"
	"github.com/meridian-retail/storefront/internal/promo"
)

// SagaOutcome records the furthest durable stage a checkout reached. It is
// transient: surfaced in responses and logs, never persisted.
type SagaOutcome string

const (
	OutcomeNotStarted         SagaOutcome = "NotStarted"
	OutcomeValidated          SagaOutcome = "Validated"
	OutcomePaid               SagaOutcome = "Paid"
	OutcomeInventoryCommitted SagaOutcome = "InventoryCommitted"
	OutcomeOrderPersisted     SagaOutcome = "OrderPersisted"
	OutcomeCompensated        SagaOutcome = "Compensated"
	OutcomeFailed             SagaOutcome = "Failed"
)

// Customer is the identity attached to a checkout.
type Customer struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// Request is everything a single checkout needs. The cart session is passed
// by reference and cleared when the saga completes.
type Request struct {
	Customer       Customer               `json:"customer" validate:"required"`
	Cart           *cart.Session          `json:"cart" validate:"required"`
	DeliveryMethod pricing.DeliveryMethod `json:"delivery_method" validate:"required,oneof=self_pickup standard express"`
	PaymentMethod  payment.Method         `json:"payment_method" validate:"required,oneof=card wallet"`
}

// Result carries what the saga produced. Outcome is set even when Checkout
// also returns an error, so callers can see how far the run got.
type Result struct {
	OrderID   string            `json:"order_id,omitempty"`
	InvoiceID string            `json:"invoice_id,omitempty"`
	Outcome   SagaOutcome       `json:"outcome"`
	Pricing   pricing.Breakdown `json:"pricing"`
	PromoNote string            `json:"promo_note,omitempty"`
}

// QuoteResult is the pre-checkout price preview. A rejected promo code does
// not fail the quote; it is priced without the discount and the rejection is
// returned alongside.
type QuoteResult struct {
	Pricing pricing.Breakdown `json:"pricing"`
	Promo   *promo.Result     `json:"promo,omitempty"`
}
