package procurement

import (
	"math"
	"time"
)

// Purchase order lifecycle statuses.
type POStatus string

const (
	POStatusDraft     POStatus = "draft"
	POStatusPending   POStatus = "pending"
	POStatusApproved  POStatus = "approved"
	POStatusOrdered   POStatus = "ordered"
	POStatusCancelled POStatus = "cancelled"
)

// Goods receipt statuses.
type GRNStatus string

const (
	GRNStatusPending   GRNStatus = "pending"
	GRNStatusReceived  GRNStatus = "received"
	GRNStatusCompleted GRNStatus = "completed"
)

// Purchase invoice statuses. partial/paid/overdue are derived, never set
// directly by a caller; cancelled is terminal and sticky.
type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusPartial   InvoiceStatus = "partial"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Supplier payment statuses.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// PurchaseOrder domain model. TotalAmount is the sum of item line totals.
type PurchaseOrder struct {
	ID                   int64
	CompanyID            int64
	Number               string
	SupplierID           int64
	WarehouseID          int64
	Status               POStatus
	OrderDate            time.Time
	ExpectedDeliveryDate time.Time
	TotalAmount          float64
	Notes                string
	CreatedBy            int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// PurchaseOrderItem is one ordered line. ReceivedQuantity accumulates as
// receipts complete and never exceeds Quantity.
type PurchaseOrderItem struct {
	ID               int64
	PurchaseOrderID  int64
	ProductID        int64
	Quantity         float64
	UnitPrice        float64
	TaxPercentage    float64
	LineTotal        float64
	ReceivedQuantity float64
}

// Remaining returns the receivable quantity left on the line.
func (i PurchaseOrderItem) Remaining() float64 {
	return Round2(i.Quantity - i.ReceivedQuantity)
}

// FullyReceived reports whether every item is received in full. It is a
// derived flag, not a status: invoicing and payment proceed against
// partially received orders.
func FullyReceived(items []PurchaseOrderItem) bool {
	if len(items) == 0 {
		return false
	}
	for _, it := range items {
		if it.ReceivedQuantity < it.Quantity {
			return false
		}
	}
	return true
}

// GoodsReceipt records one receiving event against a purchase order.
// PurchaseOrderID is zero for ad hoc receipts.
type GoodsReceipt struct {
	ID                  int64
	CompanyID           int64
	PurchaseOrderID     int64
	Number              string
	Status              GRNStatus
	ReceiptDate         time.Time
	TotalReceivedAmount float64
	Notes               string
	CreatedBy           int64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// GoodsReceiptItem is the quantity received in this receipt event for one
// purchase order line. Price fields are carried over from the PO line.
type GoodsReceiptItem struct {
	ID                  int64
	GoodsReceiptID      int64
	PurchaseOrderItemID int64
	ProductID           int64
	ReceivedQuantity    float64
	UnitPrice           float64
	TaxPercentage       float64
}

// PurchaseInvoice domain model. PaidAmount accumulates from non-cancelled
// payments and never exceeds TotalAmount.
type PurchaseInvoice struct {
	ID              int64
	CompanyID       int64
	PurchaseOrderID int64
	GoodsReceiptID  int64
	Number          string
	Status          InvoiceStatus
	InvoiceDate     time.Time
	DueDate         time.Time
	Subtotal        float64
	TaxAmount       float64
	DiscountAmount  float64
	TotalAmount     float64
	PaidAmount      float64
	FileURL         string
	CreatedBy       int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Balance returns the unpaid remainder.
func (inv PurchaseInvoice) Balance() float64 {
	return Round2(inv.TotalAmount - inv.PaidAmount)
}

// PurchaseInvoiceItem mirrors the PO/GRN line it was billed from.
type PurchaseInvoiceItem struct {
	ID                int64
	PurchaseInvoiceID int64
	ProductID         int64
	Quantity          float64
	UnitPrice         float64
	TaxPercentage     float64
	TaxAmount         float64
	LineTotal         float64
}

// SupplierPayment settles part or all of one invoice.
type SupplierPayment struct {
	ID                int64
	CompanyID         int64
	PurchaseInvoiceID int64
	Number            string
	Amount            float64
	Method            string
	Status            PaymentStatus
	PaymentDate       time.Time
	CreatedBy         int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// DeriveInvoiceStatus recomputes an invoice status from its accumulators.
// cancelled is sticky: once set no derivation overwrites it.
func DeriveInvoiceStatus(current InvoiceStatus, paid, total float64, due, now time.Time) InvoiceStatus {
	if current == InvoiceStatusCancelled {
		return InvoiceStatusCancelled
	}
	paid = Round2(paid)
	total = Round2(total)
	switch {
	case paid >= total && total > 0:
		return InvoiceStatusPaid
	case paid > 0:
		if !due.IsZero() && due.Before(now) {
			return InvoiceStatusOverdue
		}
		return InvoiceStatusPartial
	default:
		if !due.IsZero() && due.Before(now) {
			return InvoiceStatusOverdue
		}
		return InvoiceStatusPending
	}
}

// Round2 rounds a monetary or quantity value to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
