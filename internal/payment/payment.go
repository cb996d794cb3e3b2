package payment

import "context"

// Status is the processor's verdict on a confirmed intent.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusPending   Status = "pending"
)

// Method selects which external processor handles the charge.
type Method string

const (
	MethodCard   Method = "card"
	MethodWallet Method = "wallet"
)

// Confirmation is the result of confirming a payment intent.
type Confirmation struct {
	Status    Status `json:"status"`
	Reference string `json:"reference"`
}

// Processor is the narrow interface to an external payment provider. The
// provider's retry and idempotency behavior is its own; callers only see the
// two-step intent/confirm flow.
type Processor interface {
	CreateIntent(ctx context.Context, amount float64, currency string, metadata map[string]string) (string, error)
	Confirm(ctx context.Context, clientToken string) (*Confirmation, error)
}
