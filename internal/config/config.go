package config

import (
	"os"
	"strconv"
)

// Config carries everything the storefront reads from the environment:
// table names, queue URL, pricing knobs and payment endpoints.
type Config struct {
	StandardCatalogTable string
	PromoCatalogTable    string
	PromoCodesTable      string
	PromoUsageTable      string
	OrdersTable          string
	IdempotencyTable     string
	OrdersQueueURL       string

	Currency              string
	TaxRate               float64
	StandardDeliveryRate  float64
	ExpressDeliveryRate   float64
	FreeDeliveryThreshold float64

	CardPaymentURL   string
	WalletPaymentURL string

	MetricsNamespace string
}

// Load reads the configuration from environment variables, falling back to
// development defaults where a value is absent.
func Load() Config {
	return Config{
		StandardCatalogTable: getEnv("STANDARD_CATALOG_TABLE", "catalog_products"),
		PromoCatalogTable:    getEnv("PROMO_CATALOG_TABLE", "catalog_promotions"),
		PromoCodesTable:      getEnv("PROMO_CODES_TABLE", "promo_codes"),
		PromoUsageTable:      getEnv("PROMO_USAGE_TABLE", "promo_usage"),
		OrdersTable:          getEnv("ORDERS_TABLE", "orders"),
		IdempotencyTable:     getEnv("IDEMPOTENCY_TABLE", "checkout_idempotency"),
		OrdersQueueURL:       os.Getenv("ORDERS_QUEUE_URL"),

		Currency:              getEnv("CURRENCY", "USD"),
		TaxRate:               getEnvFloat("TAX_RATE", 0.07),
		StandardDeliveryRate:  getEnvFloat("STANDARD_DELIVERY_RATE", 5.99),
		ExpressDeliveryRate:   getEnvFloat("EXPRESS_DELIVERY_RATE", 14.99),
		FreeDeliveryThreshold: getEnvFloat("FREE_DELIVERY_THRESHOLD", 100),

		CardPaymentURL:   os.Getenv("CARD_PAYMENT_URL"),
		WalletPaymentURL: os.Getenv("WALLET_PAYMENT_URL"),

		MetricsNamespace: getEnv("METRICS_NAMESPACE", "Storefront/Checkout"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
