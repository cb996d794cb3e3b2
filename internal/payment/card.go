package payment

import "context"

// CardProcessor speaks to the card provider's intent/confirm API.
type CardProcessor struct {
	restClient
}

// NewCardProcessor returns a card processor bound to the provider base URL.
func NewCardProcessor(baseURL string) *CardProcessor {
	return &CardProcessor{newRestClient(baseURL)}
}

type cardIntentRequest struct {
	Amount   float64           `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type cardIntentResponse struct {
	ClientToken string `json:"client_token"`
}

// CreateIntent registers the charge with the card provider and returns the
// client token used to confirm it.
func (p *CardProcessor) CreateIntent(ctx context.Context, amount float64, currency string, metadata map[string]string) (string, error) {
	var resp cardIntentResponse
	err := p.postJSON(ctx, "/v1/intents", cardIntentRequest{
		Amount:   amount,
		Currency: currency,
		Metadata: metadata,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.ClientToken, nil
}

type cardConfirmRequest struct {
	ClientToken string `json:"client_token"`
}

// Confirm captures the intent and reports the provider's verdict.
func (p *CardProcessor) Confirm(ctx context.Context, clientToken string) (*Confirmation, error) {
	var resp Confirmation
	err := p.postJSON(ctx, "/v1/intents/confirm", cardConfirmRequest{ClientToken: clientToken}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
