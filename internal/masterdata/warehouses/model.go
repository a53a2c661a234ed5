package warehouses

import "time"

// Warehouse represents a storage location, scoped to one company.
type Warehouse struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"-"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
