package procurement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDeriveInvoiceStatus(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	future := now.Add(72 * time.Hour)
	past := now.Add(-72 * time.Hour)

	cases := []struct {
		name    string
		current InvoiceStatus
		paid    float64
		total   float64
		due     time.Time
		want    InvoiceStatus
	}{
		{"unpaid before due", InvoiceStatusPending, 0, 500, future, InvoiceStatusPending},
		{"unpaid past due", InvoiceStatusPending, 0, 500, past, InvoiceStatusOverdue},
		{"unpaid no due date", InvoiceStatusPending, 0, 500, time.Time{}, InvoiceStatusPending},
		{"partially paid before due", InvoiceStatusPending, 200, 500, future, InvoiceStatusPartial},
		{"partially paid past due", InvoiceStatusPartial, 200, 500, past, InvoiceStatusOverdue},
		{"fully paid", InvoiceStatusPartial, 500, 500, future, InvoiceStatusPaid},
		{"fully paid past due stays paid", InvoiceStatusOverdue, 500, 500, past, InvoiceStatusPaid},
		{"sub-cent remainder rounds to paid", InvoiceStatusPartial, 499.999, 500, future, InvoiceStatusPaid},
		{"zero total never paid", InvoiceStatusPending, 0, 0, future, InvoiceStatusPending},
		{"cancelled is sticky", InvoiceStatusCancelled, 500, 500, past, InvoiceStatusCancelled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveInvoiceStatus(tc.current, tc.paid, tc.total, tc.due, now)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestFullyReceived(t *testing.T) {
	require.False(t, FullyReceived(nil))
	require.False(t, FullyReceived([]PurchaseOrderItem{
		{Quantity: 10, ReceivedQuantity: 10},
		{Quantity: 5, ReceivedQuantity: 3},
	}))
	require.True(t, FullyReceived([]PurchaseOrderItem{
		{Quantity: 10, ReceivedQuantity: 10},
		{Quantity: 5, ReceivedQuantity: 5},
	}))
}

func TestItemRemaining(t *testing.T) {
	item := PurchaseOrderItem{Quantity: 10, ReceivedQuantity: 3.25}
	require.Equal(t, 6.75, item.Remaining())
}

func TestInvoiceBalance(t *testing.T) {
	inv := PurchaseInvoice{TotalAmount: 1000, PaidAmount: 333.333}
	require.Equal(t, 666.67, inv.Balance())
}
