package promo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource implements codeSource for validator tests.
type fakeSource struct {
	codes map[string]*Code
	usage map[string]int
	err   error
}

func (f *fakeSource) GetCode(_ context.Context, code string) (*Code, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.codes[code], nil
}

func (f *fakeSource) Usage(_ context.Context, _ string) (map[string]int, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.usage == nil {
		return map[string]int{}, nil
	}
	return f.usage, nil
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
}

func newTestValidator(src *fakeSource) *Validator {
	return &Validator{store: src, nowFunc: fixedNow}
}

func TestValidate_AcceptsValidCode(t *testing.T) {
	v := newTestValidator(&fakeSource{
		codes: map[string]*Code{
			"spring20": {Code: "spring20", DiscountPercent: 20, AllowedRedemptions: 3, ExpiryDate: "2026-04-01"},
		},
		usage: map[string]int{"spring20": 2},
	})

	res, err := v.Validate(context.Background(), "SPRING20", "cust-1", false)
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, 20.0, res.DiscountPercent)
	assert.Contains(t, res.Note, "April 1, 2026")
}

func TestValidate_RejectsPromotionalOnlyCart(t *testing.T) {
	v := newTestValidator(&fakeSource{
		codes: map[string]*Code{"spring20": {Code: "spring20", DiscountPercent: 20}},
	})

	res, err := v.Validate(context.Background(), "spring20", "cust-1", true)
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, ReasonNotApplicableToPromotionalItems, res.Reason)
}

func TestValidate_UnknownCode(t *testing.T) {
	v := newTestValidator(&fakeSource{codes: map[string]*Code{}})

	res, err := v.Validate(context.Background(), "nope", "cust-1", false)
	require.NoError(t, err)
	assert.Equal(t, ReasonInvalidCode, res.Reason)
}

func TestValidate_UsageLimitReached(t *testing.T) {
	v := newTestValidator(&fakeSource{
		codes: map[string]*Code{
			"twice": {Code: "twice", DiscountPercent: 5, AllowedRedemptions: 2, ExpiryDate: "2026-12-31"},
		},
		usage: map[string]int{"twice": 2},
	})

	res, err := v.Validate(context.Background(), "twice", "cust-1", false)
	require.NoError(t, err)
	assert.Equal(t, ReasonUsageLimitReached, res.Reason)
}

func TestValidate_UnlimitedAllowanceIgnoresUsage(t *testing.T) {
	v := newTestValidator(&fakeSource{
		codes: map[string]*Code{
			"forever": {Code: "forever", DiscountPercent: 10, AllowedRedemptions: 0, ExpiryDate: "2026-12-31"},
		},
		usage: map[string]int{"forever": 9000},
	})

	res, err := v.Validate(context.Background(), "forever", "cust-1", false)
	require.NoError(t, err)
	assert.True(t, res.Accepted)
}

func TestValidate_ExpiryIsDateOnly(t *testing.T) {
	// expires "today" relative to the fixed clock: still valid all day
	v := newTestValidator(&fakeSource{
		codes: map[string]*Code{
			"today": {Code: "today", DiscountPercent: 10, ExpiryDate: "2026-03-15"},
		},
	})

	res, err := v.Validate(context.Background(), "today", "cust-1", false)
	require.NoError(t, err)
	assert.True(t, res.Accepted, "a code expiring today is accepted until midnight")

	v = newTestValidator(&fakeSource{
		codes: map[string]*Code{
			"yesterday": {Code: "yesterday", DiscountPercent: 10, ExpiryDate: "2026-03-14"},
		},
	})

	res, err = v.Validate(context.Background(), "yesterday", "cust-1", false)
	require.NoError(t, err)
	assert.Equal(t, ReasonExpired, res.Reason)
}

func TestValidate_NoExpiryDate(t *testing.T) {
	v := newTestValidator(&fakeSource{
		codes: map[string]*Code{"open": {Code: "open", DiscountPercent: 15}},
	})

	res, err := v.Validate(context.Background(), "open", "cust-1", false)
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, "No expiry", res.Note)
}
