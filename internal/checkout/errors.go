package checkout

import (
	"fmt"
	"strings"

	"github.com/meridian-retail/storefront/internal/inventory"
	"github.com/meridian-retail/storefront/internal/promo"
)

// ValidationError covers everything the customer can correct and resubmit:
// bad fields, unknown or short-stocked items, a rejected promo code. Nothing
// durable happened.
type ValidationError struct {
	Fields       []string             `json:"fields,omitempty"`
	NotFound     []string             `json:"not_found,omitempty"`
	Insufficient []inventory.Shortage `json:"insufficient,omitempty"`
	PromoReason  promo.ReasonCode     `json:"promo_reason,omitempty"`
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Fields) > 0 {
		parts = append(parts, fmt.Sprintf("invalid fields: %s", strings.Join(e.Fields, ", ")))
	}
	if len(e.NotFound) > 0 {
		parts = append(parts, fmt.Sprintf("unknown products: %s", strings.Join(e.NotFound, ", ")))
	}
	if len(e.Insufficient) > 0 {
		for _, s := range e.Insufficient {
			parts = append(parts, fmt.Sprintf("%s: requested %d, available %d", s.ProductID, s.Requested, s.Available))
		}
	}
	if e.PromoReason != "" {
		parts = append(parts, fmt.Sprintf("promo code rejected: %s", e.PromoReason))
	}
	if len(parts) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// PaymentError means the processor declined or did not complete the charge.
// No inventory was touched and no order exists.
type PaymentError struct {
	Err error
}

func (e *PaymentError) Error() string { return fmt.Sprintf("payment failed: %v", e.Err) }
func (e *PaymentError) Unwrap() error { return e.Err }

// InventoryCommitError occurs after payment capture: money moved but no
// stock was decremented and no order exists. There is no automatic refund
// path; the payment reference is carried for manual reconciliation.
type InventoryCommitError struct {
	Err              error
	PaymentReference string
}

func (e *InventoryCommitError) Error() string {
	return fmt.Sprintf("inventory commit failed after payment %s: %v", e.PaymentReference, e.Err)
}
func (e *InventoryCommitError) Unwrap() error { return e.Err }

// OrderPersistError means the order write failed but compensation restored
// every stock record. The customer can retry.
type OrderPersistError struct {
	Err error
}

func (e *OrderPersistError) Error() string {
	return fmt.Sprintf("order persistence failed, stock restored: %v", e.Err)
}
func (e *OrderPersistError) Unwrap() error { return e.Err }

// CompensationError is the one manual-intervention state: the order write
// failed and the stock restore failed too. Deltas holds the decrements that
// are still applied, for reconciliation.
type CompensationError struct {
	PersistErr error
	RevertErr  error
	Deltas     []inventory.AppliedDelta
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("order persistence failed (%v) and stock restore failed (%v); %d record(s) still decremented",
		e.PersistErr, e.RevertErr, len(e.Deltas))
}
