package procurement

import (
	"context"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/guard"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// POItemInput is one requested order line.
type POItemInput struct {
	ProductID     int64
	Quantity      float64
	UnitPrice     float64
	TaxPercentage float64
}

// CreatePOInput carries the fields for a new purchase order.
type CreatePOInput struct {
	SupplierID           int64
	WarehouseID          int64
	OrderDate            time.Time
	ExpectedDeliveryDate time.Time
	Notes                string
	Items                []POItemInput
}

func validatePOInput(in CreatePOInput) error {
	if in.SupplierID <= 0 {
		return &shared.ValidationError{Field: "supplier_id", Reason: "required"}
	}
	if in.WarehouseID <= 0 {
		return &shared.ValidationError{Field: "warehouse_id", Reason: "required"}
	}
	if len(in.Items) == 0 {
		return &shared.ValidationError{Field: "items", Reason: "at least one item required"}
	}
	for _, it := range in.Items {
		if it.ProductID <= 0 {
			return &shared.ValidationError{Field: "items.product_id", Reason: "required"}
		}
		if it.Quantity <= 0 {
			return &shared.ValidationError{Field: "items.quantity", Reason: "must be positive"}
		}
		if it.UnitPrice < 0 {
			return &shared.ValidationError{Field: "items.unit_price", Reason: "must not be negative"}
		}
		if it.TaxPercentage < 0 || it.TaxPercentage > 100 {
			return &shared.ValidationError{Field: "items.tax_percentage", Reason: "must be between 0 and 100"}
		}
	}
	return nil
}

func buildPOItems(in []POItemInput) ([]PurchaseOrderItem, float64) {
	items := make([]PurchaseOrderItem, 0, len(in))
	var total float64
	for _, it := range in {
		lineTotal := Round2(it.Quantity * it.UnitPrice * (1 + it.TaxPercentage/100))
		items = append(items, PurchaseOrderItem{
			ProductID:     it.ProductID,
			Quantity:      it.Quantity,
			UnitPrice:     it.UnitPrice,
			TaxPercentage: it.TaxPercentage,
			LineTotal:     lineTotal,
		})
		total += lineTotal
	}
	return items, Round2(total)
}

// CreatePO creates a purchase order in draft with its items.
func (s *Service) CreatePO(ctx context.Context, op shared.OperationContext, in CreatePOInput) (PurchaseOrder, []PurchaseOrderItem, error) {
	if err := requireCompany(op); err != nil {
		return PurchaseOrder{}, nil, err
	}
	if err := requireRole(op, shared.RoleWarehouseManager); err != nil {
		return PurchaseOrder{}, nil, err
	}
	if err := validatePOInput(in); err != nil {
		return PurchaseOrder{}, nil, err
	}

	now := s.now()
	orderDate := in.OrderDate
	if orderDate.IsZero() {
		orderDate = now
	}
	items, total := buildPOItems(in.Items)
	po := PurchaseOrder{
		CompanyID:            op.CompanyID,
		Number:               documentNumber("PO", now),
		SupplierID:           in.SupplierID,
		WarehouseID:          in.WarehouseID,
		Status:               POStatusDraft,
		OrderDate:            orderDate,
		ExpectedDeliveryDate: in.ExpectedDeliveryDate,
		TotalAmount:          total,
		Notes:                in.Notes,
		CreatedBy:            op.UserID,
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreatePO(ctx, po)
		if err != nil {
			return err
		}
		po.ID = id
		for i := range items {
			items[i].PurchaseOrderID = id
			itemID, err := tx.InsertPOItem(ctx, items[i])
			if err != nil {
				return err
			}
			items[i].ID = itemID
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, nil, err
	}

	s.recordAudit(ctx, op, "purchase_order.create", "purchase_order", po.ID, map[string]any{
		"number": po.Number, "total": po.TotalAmount,
	})
	return po, items, nil
}

// GetPO returns one purchase order with items, tenant scoped.
func (s *Service) GetPO(ctx context.Context, op shared.OperationContext, id int64) (PurchaseOrder, []PurchaseOrderItem, error) {
	if err := requireCompany(op); err != nil {
		return PurchaseOrder{}, nil, err
	}
	return s.repo.GetPO(ctx, op.CompanyID, id)
}

// ListPOs returns a page of purchase orders.
func (s *Service) ListPOs(ctx context.Context, op shared.OperationContext, limit, offset int, filters ListFilters) ([]POListItem, int, error) {
	if err := requireCompany(op); err != nil {
		return nil, 0, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListPOs(ctx, op.CompanyID, limit, offset, filters)
}

// UpdatePO replaces the header and items of an order still in draft or
// pending. Orders past approval are immutable.
func (s *Service) UpdatePO(ctx context.Context, op shared.OperationContext, id int64, in CreatePOInput) (PurchaseOrder, []PurchaseOrderItem, error) {
	if err := requireCompany(op); err != nil {
		return PurchaseOrder{}, nil, err
	}
	if err := requireRole(op, shared.RoleAdmin); err != nil {
		return PurchaseOrder{}, nil, err
	}
	if err := validatePOInput(in); err != nil {
		return PurchaseOrder{}, nil, err
	}

	po, _, err := s.repo.GetPO(ctx, op.CompanyID, id)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	if po.Status != POStatusDraft && po.Status != POStatusPending {
		return PurchaseOrder{}, nil, &shared.ConflictError{Reason: "purchase order is " + string(po.Status) + ", only draft or pending orders can be edited"}
	}

	items, total := buildPOItems(in.Items)
	po.SupplierID = in.SupplierID
	po.WarehouseID = in.WarehouseID
	if !in.OrderDate.IsZero() {
		po.OrderDate = in.OrderDate
	}
	po.ExpectedDeliveryDate = in.ExpectedDeliveryDate
	po.Notes = in.Notes
	po.TotalAmount = total

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.UpdatePOHeader(ctx, po)
		if err != nil {
			return err
		}
		if !ok {
			return &shared.ConcurrencyConflictError{Entity: "purchase order"}
		}
		if err := tx.DeletePOItems(ctx, op.CompanyID, id); err != nil {
			return err
		}
		for i := range items {
			items[i].PurchaseOrderID = id
			itemID, err := tx.InsertPOItem(ctx, items[i])
			if err != nil {
				return err
			}
			items[i].ID = itemID
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, nil, err
	}

	s.recordAudit(ctx, op, "purchase_order.update", "purchase_order", id, map[string]any{"total": total})
	return po, items, nil
}

// SubmitPO moves draft to pending for approval.
func (s *Service) SubmitPO(ctx context.Context, op shared.OperationContext, id int64) (PurchaseOrder, error) {
	po, err := s.transitionPO(ctx, op, id, POStatusPending, "purchase_order.submit")
	if err != nil {
		return po, err
	}
	s.notifyDocument(ctx, op.CompanyID, "purchase_order", id, "submitted")
	return po, nil
}

// ApprovePO moves pending to approved.
func (s *Service) ApprovePO(ctx context.Context, op shared.OperationContext, id int64) (PurchaseOrder, error) {
	return s.transitionPO(ctx, op, id, POStatusApproved, "purchase_order.approve")
}

// CancelPO cancels an order that has not been approved. An order with
// receipts against it is never cancellable: the receipts would be
// orphaned.
func (s *Service) CancelPO(ctx context.Context, op shared.OperationContext, id int64) (PurchaseOrder, error) {
	if err := requireCompany(op); err != nil {
		return PurchaseOrder{}, err
	}
	receipts, err := s.repo.CountGRNsForPO(ctx, op.CompanyID, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if receipts > 0 {
		return PurchaseOrder{}, &shared.ConflictError{Reason: "purchase order has goods receipts and cannot be cancelled"}
	}
	return s.transitionPO(ctx, op, id, POStatusCancelled, "purchase_order.cancel")
}

func (s *Service) transitionPO(ctx context.Context, op shared.OperationContext, id int64, to POStatus, action string) (PurchaseOrder, error) {
	if err := requireCompany(op); err != nil {
		return PurchaseOrder{}, err
	}
	po, _, err := s.repo.GetPO(ctx, op.CompanyID, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if err := guard.Check(guard.DocPurchaseOrder, string(po.Status), string(to), op); err != nil {
		return PurchaseOrder{}, err
	}

	from := po.Status
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.UpdatePOStatus(ctx, op.CompanyID, id, from, to)
		if err != nil {
			return err
		}
		if !ok {
			return &shared.ConcurrencyConflictError{Entity: "purchase order"}
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	po.Status = to

	s.recordAudit(ctx, op, action, "purchase_order", id, map[string]any{
		"from": string(from), "to": string(to),
	})
	return po, nil
}
