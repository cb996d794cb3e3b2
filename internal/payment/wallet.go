package payment

import "context"

// WalletProcessor speaks to the wallet provider. The wallet API mirrors the
// intent/confirm flow but calls intents "charges" and nests the amount.
type WalletProcessor struct {
	restClient
}

// NewWalletProcessor returns a wallet processor bound to the provider base URL.
func NewWalletProcessor(baseURL string) *WalletProcessor {
	return &WalletProcessor{newRestClient(baseURL)}
}

type walletChargeRequest struct {
	Charge struct {
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
	} `json:"charge"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type walletChargeResponse struct {
	Token string `json:"token"`
}

func (p *WalletProcessor) CreateIntent(ctx context.Context, amount float64, currency string, metadata map[string]string) (string, error) {
	req := walletChargeRequest{Metadata: metadata}
	req.Charge.Amount = amount
	req.Charge.Currency = currency

	var resp walletChargeResponse
	if err := p.postJSON(ctx, "/wallet/charges", req, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

type walletConfirmRequest struct {
	Token string `json:"token"`
}

type walletConfirmResponse struct {
	State     string `json:"state"`
	Reference string `json:"reference"`
}

func (p *WalletProcessor) Confirm(ctx context.Context, clientToken string) (*Confirmation, error) {
	var resp walletConfirmResponse
	if err := p.postJSON(ctx, "/wallet/charges/confirm", walletConfirmRequest{Token: clientToken}, &resp); err != nil {
		return nil, err
	}
	return &Confirmation{
		Status:    walletStatus(resp.State),
		Reference: resp.Reference,
	}, nil
}

// walletStatus maps the wallet provider's state names onto ours.
func walletStatus(state string) Status {
	switch state {
	case "approved":
		return StatusSucceeded
	case "declined":
		return StatusFailed
	default:
		return StatusPending
	}
}
