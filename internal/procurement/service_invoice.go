package procurement

import (
	"context"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/guard"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// InvoiceItemInput is one billed line on a manually entered invoice.
type InvoiceItemInput struct {
	ProductID     int64
	Quantity      float64
	UnitPrice     float64
	TaxPercentage float64
}

// CreateInvoiceInput carries the fields for a manually entered invoice.
type CreateInvoiceInput struct {
	PurchaseOrderID int64
	InvoiceDate     time.Time
	DueDate         time.Time
	DiscountAmount  float64
	Items           []InvoiceItemInput
}

// InvoiceFromGRNInput carries the billing fields when generating an
// invoice from a completed goods receipt.
type InvoiceFromGRNInput struct {
	GoodsReceiptID int64
	InvoiceDate    time.Time
	DueDate        time.Time
	DiscountAmount float64
}

func buildInvoiceItems(lines []InvoiceItemInput) ([]PurchaseInvoiceItem, float64, float64) {
	items := make([]PurchaseInvoiceItem, 0, len(lines))
	var subtotal, tax float64
	for _, line := range lines {
		net := line.Quantity * line.UnitPrice
		lineTax := net * line.TaxPercentage / 100
		items = append(items, PurchaseInvoiceItem{
			ProductID:     line.ProductID,
			Quantity:      line.Quantity,
			UnitPrice:     line.UnitPrice,
			TaxPercentage: line.TaxPercentage,
			TaxAmount:     Round2(lineTax),
			LineTotal:     Round2(net + lineTax),
		})
		subtotal += net
		tax += lineTax
	}
	return items, Round2(subtotal), Round2(tax)
}

// CreateInvoice records a manually entered supplier invoice. Status is
// derived at creation: pending, or overdue when the due date already
// passed.
func (s *Service) CreateInvoice(ctx context.Context, op shared.OperationContext, in CreateInvoiceInput) (PurchaseInvoice, []PurchaseInvoiceItem, error) {
	if err := requireCompany(op); err != nil {
		return PurchaseInvoice{}, nil, err
	}
	if err := requireRole(op, shared.RoleAccounts); err != nil {
		return PurchaseInvoice{}, nil, err
	}
	if len(in.Items) == 0 {
		return PurchaseInvoice{}, nil, &shared.ValidationError{Field: "items", Reason: "at least one item required"}
	}
	if in.DueDate.IsZero() {
		return PurchaseInvoice{}, nil, &shared.ValidationError{Field: "due_date", Reason: "required"}
	}
	if in.DiscountAmount < 0 {
		return PurchaseInvoice{}, nil, &shared.ValidationError{Field: "discount_amount", Reason: "must not be negative"}
	}
	for _, it := range in.Items {
		if it.ProductID <= 0 {
			return PurchaseInvoice{}, nil, &shared.ValidationError{Field: "items.product_id", Reason: "required"}
		}
		if it.Quantity <= 0 {
			return PurchaseInvoice{}, nil, &shared.ValidationError{Field: "items.quantity", Reason: "must be positive"}
		}
		if it.UnitPrice < 0 {
			return PurchaseInvoice{}, nil, &shared.ValidationError{Field: "items.unit_price", Reason: "must not be negative"}
		}
	}

	if in.PurchaseOrderID > 0 {
		// Manual invoices may precede receipt, so quantities are checked
		// against the ordered amounts, not the received ones.
		_, poItems, err := s.repo.GetPO(ctx, op.CompanyID, in.PurchaseOrderID)
		if err != nil {
			return PurchaseInvoice{}, nil, err
		}
		ordered := make(map[int64]float64, len(poItems))
		for _, it := range poItems {
			ordered[it.ProductID] += it.Quantity
		}
		for _, it := range in.Items {
			limit, ok := ordered[it.ProductID]
			if !ok {
				return PurchaseInvoice{}, nil, &shared.ValidationError{Field: "items.product_id", Reason: "product is not on the referenced purchase order"}
			}
			if it.Quantity > limit {
				return PurchaseInvoice{}, nil, &shared.QuantityExceededError{
					ProductID: it.ProductID,
					Requested: it.Quantity,
					Remaining: limit,
				}
			}
		}
	}

	items, subtotal, tax := buildInvoiceItems(in.Items)
	total := Round2(subtotal + tax - in.DiscountAmount)
	if total < 0 {
		return PurchaseInvoice{}, nil, &shared.ValidationError{Field: "discount_amount", Reason: "exceeds invoice total"}
	}
	return s.createInvoice(ctx, op, PurchaseInvoice{
		CompanyID:       op.CompanyID,
		PurchaseOrderID: in.PurchaseOrderID,
		InvoiceDate:     orNow(in.InvoiceDate, s.now()),
		DueDate:         in.DueDate,
		Subtotal:        subtotal,
		TaxAmount:       tax,
		DiscountAmount:  in.DiscountAmount,
		TotalAmount:     total,
	}, items)
}

// CreateInvoiceFromGRN generates an invoice from a completed goods
// receipt, copying its lines. Receipts still pending or received cannot
// be billed.
func (s *Service) CreateInvoiceFromGRN(ctx context.Context, op shared.OperationContext, in InvoiceFromGRNInput) (PurchaseInvoice, []PurchaseInvoiceItem, error) {
	if err := requireCompany(op); err != nil {
		return PurchaseInvoice{}, nil, err
	}
	if err := requireRole(op, shared.RoleAccounts); err != nil {
		return PurchaseInvoice{}, nil, err
	}
	if in.DueDate.IsZero() {
		return PurchaseInvoice{}, nil, &shared.ValidationError{Field: "due_date", Reason: "required"}
	}
	if in.DiscountAmount < 0 {
		return PurchaseInvoice{}, nil, &shared.ValidationError{Field: "discount_amount", Reason: "must not be negative"}
	}

	grn, grnItems, err := s.repo.GetGRN(ctx, op.CompanyID, in.GoodsReceiptID)
	if err != nil {
		return PurchaseInvoice{}, nil, err
	}
	if grn.Status != GRNStatusCompleted {
		return PurchaseInvoice{}, nil, &shared.GRNNotCompletedError{Number: grn.Number, Status: string(grn.Status)}
	}

	lines := make([]InvoiceItemInput, 0, len(grnItems))
	for _, it := range grnItems {
		lines = append(lines, InvoiceItemInput{
			ProductID:     it.ProductID,
			Quantity:      it.ReceivedQuantity,
			UnitPrice:     it.UnitPrice,
			TaxPercentage: it.TaxPercentage,
		})
	}
	items, subtotal, tax := buildInvoiceItems(lines)
	total := Round2(subtotal + tax - in.DiscountAmount)
	if total < 0 {
		return PurchaseInvoice{}, nil, &shared.ValidationError{Field: "discount_amount", Reason: "exceeds invoice total"}
	}
	return s.createInvoice(ctx, op, PurchaseInvoice{
		CompanyID:       op.CompanyID,
		PurchaseOrderID: grn.PurchaseOrderID,
		GoodsReceiptID:  grn.ID,
		InvoiceDate:     orNow(in.InvoiceDate, s.now()),
		DueDate:         in.DueDate,
		Subtotal:        subtotal,
		TaxAmount:       tax,
		DiscountAmount:  in.DiscountAmount,
		TotalAmount:     total,
	}, items)
}

func (s *Service) createInvoice(ctx context.Context, op shared.OperationContext, inv PurchaseInvoice, items []PurchaseInvoiceItem) (PurchaseInvoice, []PurchaseInvoiceItem, error) {
	now := s.now()
	inv.Number = documentNumber("INV", now)
	inv.Status = DeriveInvoiceStatus(InvoiceStatusPending, 0, inv.TotalAmount, inv.DueDate, now)
	inv.CreatedBy = op.UserID

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreateInvoice(ctx, inv)
		if err != nil {
			return err
		}
		inv.ID = id
		for i := range items {
			items[i].PurchaseInvoiceID = id
			itemID, err := tx.InsertInvoiceItem(ctx, items[i])
			if err != nil {
				return err
			}
			items[i].ID = itemID
		}
		return nil
	})
	if err != nil {
		return PurchaseInvoice{}, nil, err
	}

	s.recordAudit(ctx, op, "purchase_invoice.create", "purchase_invoice", inv.ID, map[string]any{
		"number": inv.Number, "total": inv.TotalAmount, "goods_receipt_id": inv.GoodsReceiptID,
	})
	return inv, items, nil
}

// GetInvoice returns one invoice with items.
func (s *Service) GetInvoice(ctx context.Context, op shared.OperationContext, id int64) (PurchaseInvoice, []PurchaseInvoiceItem, error) {
	if err := requireCompany(op); err != nil {
		return PurchaseInvoice{}, nil, err
	}
	return s.repo.GetInvoice(ctx, op.CompanyID, id)
}

// ListInvoices returns a page of invoices.
func (s *Service) ListInvoices(ctx context.Context, op shared.OperationContext, limit, offset int, filters ListFilters) ([]InvoiceListItem, int, error) {
	if err := requireCompany(op); err != nil {
		return nil, 0, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListInvoices(ctx, op.CompanyID, limit, offset, filters)
}

// CancelInvoice cancels an unpaid invoice. Cancelled is terminal: no
// later payment or derivation resurrects it. Invoices with recorded
// payments must have those payments reversed first.
func (s *Service) CancelInvoice(ctx context.Context, op shared.OperationContext, id int64) (PurchaseInvoice, error) {
	if err := requireCompany(op); err != nil {
		return PurchaseInvoice{}, err
	}
	inv, _, err := s.repo.GetInvoice(ctx, op.CompanyID, id)
	if err != nil {
		return PurchaseInvoice{}, err
	}
	if err := guard.Check(guard.DocInvoice, string(inv.Status), string(InvoiceStatusCancelled), op); err != nil {
		return PurchaseInvoice{}, err
	}
	if inv.PaidAmount > 0 {
		return PurchaseInvoice{}, &shared.ConflictError{Reason: "invoice has recorded payments, reverse them before cancelling"}
	}

	from := inv.Status
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.UpdateInvoiceStatus(ctx, op.CompanyID, id, from, InvoiceStatusCancelled)
		if err != nil {
			return err
		}
		if !ok {
			return &shared.ConcurrencyConflictError{Entity: "purchase invoice"}
		}
		return nil
	})
	if err != nil {
		return PurchaseInvoice{}, err
	}
	inv.Status = InvoiceStatusCancelled

	s.recordAudit(ctx, op, "purchase_invoice.cancel", "purchase_invoice", id, map[string]any{
		"from": string(from),
	})
	return inv, nil
}

// AttachInvoiceFile stores the scanned document reference on the
// invoice. It is a side channel: the state machine is untouched.
func (s *Service) AttachInvoiceFile(ctx context.Context, op shared.OperationContext, id int64, url string) error {
	if err := requireCompany(op); err != nil {
		return err
	}
	if err := requireRole(op, shared.RoleAccounts); err != nil {
		return err
	}
	if url == "" {
		return &shared.ValidationError{Field: "file_url", Reason: "required"}
	}
	if err := s.repo.SetInvoiceFileURL(ctx, op.CompanyID, id, url); err != nil {
		return err
	}
	s.recordAudit(ctx, op, "purchase_invoice.attach_file", "purchase_invoice", id, nil)
	return nil
}

// MarkOverdue flips every pending or partial invoice past its due date
// to overdue. It runs from the scheduler, not a request path.
func (s *Service) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	return s.repo.MarkOverdueInvoices(ctx, asOf)
}

func orNow(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t
}
