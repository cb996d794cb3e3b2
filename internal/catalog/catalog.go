package catalog

import "time"

// Catalog identifies which of the two disjoint product partitions a record
// lives in. Membership is not encoded in the record itself, so resolution
// probes both tables; once resolved, the tag travels with the record.
type Catalog string

const (
	CatalogStandard    Catalog = "standard"
	CatalogPromotional Catalog = "promotional"
)

// InventoryRecord is the shape persisted in both catalog tables.
// stock is never negative; only the inventory committer and compensator
// mutate it. version is the optimistic-concurrency token: every stock write
// is conditional on the version read beforehand.
type InventoryRecord struct {
	ProductID   string    `dynamodbav:"product_id"` // PK
	Name        string    `dynamodbav:"name,omitempty"`
	Price       float64   `dynamodbav:"price"`
	Stock       int       `dynamodbav:"stock"`
	Version     int64     `dynamodbav:"version"`
	LastUpdated time.Time `dynamodbav:"last_updated"`
}

// Location is a product reference resolved to exactly one catalog.
type Location struct {
	Catalog Catalog
	Record  InventoryRecord
}
