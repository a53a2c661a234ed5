package suppliers

import (
	"time"
)

// Supplier represents a supplier entity, scoped to one company.
type Supplier struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"-"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
