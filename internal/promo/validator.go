package promo

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// codeSource is the slice of Store the validator reads from.
type codeSource interface {
	GetCode(ctx context.Context, code string) (*Code, error)
	Usage(ctx context.Context, customerID string) (map[string]int, error)
}

// Validator applies the promo acceptance rules. It only reads; redemption
// counts are written elsewhere when orders complete.
type Validator struct {
	store   codeSource
	nowFunc func() time.Time
}

// NewValidator returns a Validator backed by the given store.
func NewValidator(store *Store) *Validator {
	return &Validator{store: store, nowFunc: time.Now}
}

// Validate checks a code for a customer's cart. promotionalOnly must be true
// when every cart item resolved to the promotional catalog; such carts can
// never take a promo discount. Rule order: cart eligibility, code existence,
// per-customer usage allowance, then expiry. The returned Result carries
// either the discount or a rejection reason; the error is reserved for store
// failures.
func (v *Validator) Validate(ctx context.Context, code, customerID string, promotionalOnly bool) (*Result, error) {
	if promotionalOnly {
		return &Result{Reason: ReasonNotApplicableToPromotionalItems}, nil
	}

	pc, err := v.store.GetCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if pc == nil {
		return &Result{Reason: ReasonInvalidCode}, nil
	}

	if !pc.AllowedRedemptions.Unlimited() {
		usage, err := v.store.Usage(ctx, customerID)
		if err != nil {
			return nil, err
		}
		if usage[strings.ToLower(strings.TrimSpace(code))] >= int(pc.AllowedRedemptions) {
			return &Result{Reason: ReasonUsageLimitReached}, nil
		}
	}

	note := "No expiry"
	if pc.ExpiryDate != "" {
		expiry, err := time.Parse(dateLayout, pc.ExpiryDate)
		if err != nil {
			return nil, fmt.Errorf("parse expiry date %q: %w", pc.ExpiryDate, err)
		}
		// date-only comparison: a code expiring today is still valid today
		today := v.nowFunc().UTC().Truncate(24 * time.Hour)
		if expiry.Before(today) {
			return &Result{Reason: ReasonExpired}, nil
		}
		note = fmt.Sprintf("Valid until %s", expiry.Format("January 2, 2006"))
	}

	return &Result{
		Accepted:        true,
		DiscountPercent: pc.DiscountPercent,
		Note:            note,
	}, nil
}
