package pricing

import "math"

// DeliveryMethod selects how the order ships.
type DeliveryMethod string

const (
	DeliverySelfPickup DeliveryMethod = "self_pickup"
	DeliveryStandard   DeliveryMethod = "standard"
	DeliveryExpress    DeliveryMethod = "express"
)

// Item is a cart line reduced to what pricing needs. Promotional marks items
// resolved to the promotional catalog; those are excluded from promo discounts.
type Item struct {
	UnitPrice   float64
	Quantity    int
	Promotional bool
}

// Rates holds the configured pricing knobs.
type Rates struct {
	TaxRate               float64
	StandardDeliveryRate  float64
	ExpressDeliveryRate   float64
	FreeDeliveryThreshold float64
}

// Breakdown is the derived price of a cart. Total = Subtotal + Tax +
// DeliveryFee - PromoDiscount. Fields are rounded to 2 decimals once, at the
// end of the calculation, never in between.
type Breakdown struct {
	Subtotal      float64 `json:"subtotal" dynamodbav:"subtotal"`
	Tax           float64 `json:"tax" dynamodbav:"tax"`
	DeliveryFee   float64 `json:"delivery_fee" dynamodbav:"delivery_fee"`
	PromoDiscount float64 `json:"promo_discount" dynamodbav:"promo_discount"`
	Total         float64 `json:"total" dynamodbav:"total"`
}

// Calculate prices a cart. discountPercent is 0 when no promo is active; the
// discount base is the subtotal of non-promotional items only.
func Calculate(items []Item, method DeliveryMethod, rates Rates, discountPercent float64) Breakdown {
	var subtotal, regularSubtotal float64
	for _, it := range items {
		line := it.UnitPrice * float64(it.Quantity)
		subtotal += line
		if !it.Promotional {
			regularSubtotal += line
		}
	}

	fee := deliveryFee(subtotal, method, rates)
	tax := subtotal * rates.TaxRate
	discount := regularSubtotal * discountPercent / 100

	return Breakdown{
		Subtotal:      round2(subtotal),
		Tax:           round2(tax),
		DeliveryFee:   round2(fee),
		PromoDiscount: round2(discount),
		Total:         round2(subtotal + tax + fee - discount),
	}
}

func deliveryFee(subtotal float64, method DeliveryMethod, rates Rates) float64 {
	switch method {
	case DeliverySelfPickup:
		return 0
	case DeliveryExpress:
		// express is never free, regardless of subtotal
		return rates.ExpressDeliveryRate
	default:
		if rates.FreeDeliveryThreshold > 0 && subtotal >= rates.FreeDeliveryThreshold {
			return 0
		}
		return rates.StandardDeliveryRate
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
