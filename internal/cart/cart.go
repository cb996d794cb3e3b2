package cart

// LineItem is one entry of a customer's cart as submitted at checkout.
// The cart is owned by the client session; the server only sees it when a
// checkout begins, so the whole Session travels with the request.
type LineItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name,omitempty"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
	Color     string  `json:"color,omitempty"`
	Size      string  `json:"size,omitempty"`
}

// Session is the serializable cart state passed by reference into the
// checkout orchestrator. It is never stored server-side.
type Session struct {
	CustomerID string     `json:"customer_id"`
	Items      []LineItem `json:"items"`
	PromoCode  string     `json:"promo_code,omitempty"`
}

// IsEmpty reports whether the session has nothing to check out.
func (s *Session) IsEmpty() bool {
	return s == nil || len(s.Items) == 0
}

// Clear empties the session once its items have become an order.
func (s *Session) Clear() {
	if s == nil {
		return
	}
	s.Items = nil
	s.PromoCode = ""
}
