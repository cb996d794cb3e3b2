package validation

// CartItem is one order line as submitted over the wire. The unit price is
// display-only; the server prices from the catalog record.
type CartItem struct {
	ProductID string  `json:"product_id" validate:"required"`
	Name      string  `json:"name,omitempty"`
	UnitPrice float64 `json:"unit_price,omitempty" validate:"omitempty,gte=0"`
	Quantity  int     `json:"quantity" validate:"required,min=1"` // must be >= 1
	Color     string  `json:"color,omitempty"`
	Size      string  `json:"size,omitempty"`
}

// CustomerInfo carries the identity fields checked before anything else runs.
type CustomerInfo struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// CheckoutRequest is the payload for POST /checkout.
type CheckoutRequest struct {
	Customer       CustomerInfo `json:"customer" validate:"required"`
	Items          []CartItem   `json:"items" validate:"required,min=1,dive"` // at least one item
	PromoCode      string       `json:"promo_code,omitempty"`
	DeliveryMethod string       `json:"delivery_method" validate:"required,oneof=self_pickup standard express"`
	PaymentMethod  string       `json:"payment_method" validate:"required,oneof=card wallet"`
}

// QuoteRequest is the payload for POST /checkout/quote.
type QuoteRequest struct {
	CustomerID     string     `json:"customer_id" validate:"required"`
	Items          []CartItem `json:"items" validate:"required,min=1,dive"`
	PromoCode      string     `json:"promo_code,omitempty"`
	DeliveryMethod string     `json:"delivery_method" validate:"required,oneof=self_pickup standard express"`
}

// PromoCheckRequest is the payload for POST /promo/validate. Items are
// optional; when present they determine whether the cart is promotional-only.
type PromoCheckRequest struct {
	Code       string     `json:"code" validate:"required"`
	CustomerID string     `json:"customer_id" validate:"required"`
	Items      []CartItem `json:"items,omitempty" validate:"omitempty,dive"`
}
