package orders

import (
	"time"

	"github.com/meridian-retail/storefront/internal/pricing"
)

// Status values an order moves through after checkout persists it.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
	StatusDelivered  Status = "DELIVERED"
)

// Item is the immutable snapshot of one cart line at the moment the order
// was created, including which catalog the product resolved to.
type Item struct {
	ProductID string  `dynamodbav:"product_id" json:"product_id"`
	Name      string  `dynamodbav:"name,omitempty" json:"name,omitempty"`
	Catalog   string  `dynamodbav:"catalog" json:"catalog"`
	UnitPrice float64 `dynamodbav:"unit_price" json:"unit_price"`
	Quantity  int     `dynamodbav:"quantity" json:"quantity"`
	Color     string  `dynamodbav:"color,omitempty" json:"color,omitempty"`
	Size      string  `dynamodbav:"size,omitempty" json:"size,omitempty"`
}

// Order is the record persisted once per successful checkout. It is the last
// write of the saga and is never partially written; only Status and
// UpdatedAt change afterwards.
type Order struct {
	OrderID          string            `dynamodbav:"order_id" json:"order_id"` // PK
	CustomerID       string            `dynamodbav:"customer_id" json:"customer_id"`
	InvoiceID        string            `dynamodbav:"invoice_id" json:"invoice_id"`
	Status           Status            `dynamodbav:"status" json:"status"`
	Items            []Item            `dynamodbav:"items" json:"items"`
	Pricing          pricing.Breakdown `dynamodbav:"pricing" json:"pricing"`
	Currency         string            `dynamodbav:"currency" json:"currency"`
	DeliveryMethod   string            `dynamodbav:"delivery_method" json:"delivery_method"`
	PaymentMethod    string            `dynamodbav:"payment_method" json:"payment_method"`
	PaymentReference string            `dynamodbav:"payment_reference" json:"payment_reference"`
	PromoCode        string            `dynamodbav:"promo_code,omitempty" json:"promo_code,omitempty"`
	CreatedAt        time.Time         `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `dynamodbav:"updated_at" json:"updated_at"`
}
