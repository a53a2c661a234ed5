package products

import "time"

// Product represents a purchasable item, scoped to one company.
type Product struct {
	ID            int64     `json:"id"`
	CompanyID     int64     `json:"-"`
	SKU           string    `json:"sku"`
	Name          string    `json:"name"`
	Unit          string    `json:"unit"`
	PurchasePrice float64   `json:"purchase_price"`
	TaxPercentage float64   `json:"tax_percentage"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
