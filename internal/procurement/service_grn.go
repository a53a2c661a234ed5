package procurement

import (
	"context"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/guard"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// GRNItemInput requests a received quantity against one order line.
type GRNItemInput struct {
	PurchaseOrderItemID int64
	Quantity            float64
}

// CreateGRNInput carries the fields for a new goods receipt.
type CreateGRNInput struct {
	PurchaseOrderID int64
	ReceiptDate     time.Time
	Notes           string
	Items           []GRNItemInput
}

// CreateGRN records a receiving event against an approved or ordered
// purchase order. The first receipt flips the order to ordered through
// the system transition. Quantities are pre-checked here against the
// remaining receivable amount; the hard bound is enforced again at
// completion inside the transaction.
func (s *Service) CreateGRN(ctx context.Context, op shared.OperationContext, in CreateGRNInput) (GoodsReceipt, []GoodsReceiptItem, error) {
	if err := requireCompany(op); err != nil {
		return GoodsReceipt{}, nil, err
	}
	if err := requireRole(op, shared.RoleWarehouseManager); err != nil {
		return GoodsReceipt{}, nil, err
	}
	if in.PurchaseOrderID <= 0 {
		return GoodsReceipt{}, nil, &shared.ValidationError{Field: "purchase_order_id", Reason: "required"}
	}
	if len(in.Items) == 0 {
		return GoodsReceipt{}, nil, &shared.ValidationError{Field: "items", Reason: "at least one item required"}
	}

	po, poItems, err := s.repo.GetPO(ctx, op.CompanyID, in.PurchaseOrderID)
	if err != nil {
		return GoodsReceipt{}, nil, err
	}
	if po.Status != POStatusApproved && po.Status != POStatusOrdered {
		return GoodsReceipt{}, nil, &shared.ConflictError{Reason: "purchase order is " + string(po.Status) + ", receiving requires approved or ordered"}
	}

	byID := make(map[int64]PurchaseOrderItem, len(poItems))
	for _, it := range poItems {
		byID[it.ID] = it
	}

	now := s.now()
	receiptDate := in.ReceiptDate
	if receiptDate.IsZero() {
		receiptDate = now
	}
	var total float64
	items := make([]GoodsReceiptItem, 0, len(in.Items))
	for _, it := range in.Items {
		line, ok := byID[it.PurchaseOrderItemID]
		if !ok {
			return GoodsReceipt{}, nil, &shared.ValidationError{Field: "items.purchase_order_item_id", Reason: "not a line of this purchase order"}
		}
		if it.Quantity <= 0 {
			return GoodsReceipt{}, nil, &shared.ValidationError{Field: "items.quantity", Reason: "must be positive"}
		}
		if it.Quantity > line.Remaining() {
			return GoodsReceipt{}, nil, &shared.QuantityExceededError{
				ProductID: line.ProductID,
				Requested: it.Quantity,
				Remaining: line.Remaining(),
			}
		}
		items = append(items, GoodsReceiptItem{
			PurchaseOrderItemID: line.ID,
			ProductID:           line.ProductID,
			ReceivedQuantity:    it.Quantity,
			UnitPrice:           line.UnitPrice,
			TaxPercentage:       line.TaxPercentage,
		})
		total += it.Quantity * line.UnitPrice * (1 + line.TaxPercentage/100)
	}

	grn := GoodsReceipt{
		CompanyID:           op.CompanyID,
		PurchaseOrderID:     po.ID,
		Number:              documentNumber("GRN", now),
		Status:              GRNStatusPending,
		ReceiptDate:         receiptDate,
		TotalReceivedAmount: Round2(total),
		Notes:               in.Notes,
		CreatedBy:           op.UserID,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreateGRN(ctx, grn)
		if err != nil {
			return err
		}
		grn.ID = id
		for i := range items {
			items[i].GoodsReceiptID = id
			itemID, err := tx.InsertGRNItem(ctx, items[i])
			if err != nil {
				return err
			}
			items[i].ID = itemID
		}
		if po.Status == POStatusApproved {
			// System edge: the conditional update makes concurrent first
			// receipts converge on a single flip.
			if _, err := tx.UpdatePOStatus(ctx, op.CompanyID, po.ID, POStatusApproved, POStatusOrdered); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return GoodsReceipt{}, nil, err
	}

	s.recordAudit(ctx, op, "goods_receipt.create", "goods_receipt", grn.ID, map[string]any{
		"number": grn.Number, "purchase_order_id": po.ID,
	})
	return grn, items, nil
}

// GetGRN returns one goods receipt with items.
func (s *Service) GetGRN(ctx context.Context, op shared.OperationContext, id int64) (GoodsReceipt, []GoodsReceiptItem, error) {
	if err := requireCompany(op); err != nil {
		return GoodsReceipt{}, nil, err
	}
	return s.repo.GetGRN(ctx, op.CompanyID, id)
}

// ListGRNs returns a page of goods receipts.
func (s *Service) ListGRNs(ctx context.Context, op shared.OperationContext, limit, offset int, filters ListFilters) ([]GRNListItem, int, error) {
	if err := requireCompany(op); err != nil {
		return nil, 0, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListGRNs(ctx, op.CompanyID, limit, offset, filters)
}

// ReceiveGRN confirms physical receipt: pending to received.
func (s *Service) ReceiveGRN(ctx context.Context, op shared.OperationContext, id int64) (GoodsReceipt, error) {
	if err := requireCompany(op); err != nil {
		return GoodsReceipt{}, err
	}
	grn, _, err := s.repo.GetGRN(ctx, op.CompanyID, id)
	if err != nil {
		return GoodsReceipt{}, err
	}
	if err := guard.Check(guard.DocGoodsReceipt, string(grn.Status), string(GRNStatusReceived), op); err != nil {
		return GoodsReceipt{}, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.UpdateGRNStatus(ctx, op.CompanyID, id, GRNStatusPending, GRNStatusReceived)
		if err != nil {
			return err
		}
		if !ok {
			return &shared.ConcurrencyConflictError{Entity: "goods receipt"}
		}
		return nil
	})
	if err != nil {
		return GoodsReceipt{}, err
	}
	grn.Status = GRNStatusReceived

	s.recordAudit(ctx, op, "goods_receipt.receive", "goods_receipt", id, nil)
	s.notifyDocument(ctx, op.CompanyID, "goods_receipt", id, "received")
	return grn, nil
}

// CompleteGRN finalizes a receipt: received to completed, accumulating
// every line's quantity onto its purchase order item. The status flip is
// conditional on the current status, so completing twice can never
// accumulate twice: the repeat fails the predicate and reports
// AlreadyCompletedError.
func (s *Service) CompleteGRN(ctx context.Context, op shared.OperationContext, id int64) (GoodsReceipt, error) {
	if err := requireCompany(op); err != nil {
		return GoodsReceipt{}, err
	}
	grn, items, err := s.repo.GetGRN(ctx, op.CompanyID, id)
	if err != nil {
		return GoodsReceipt{}, err
	}
	if grn.Status == GRNStatusCompleted {
		return GoodsReceipt{}, &shared.AlreadyCompletedError{Number: grn.Number}
	}
	if err := guard.Check(guard.DocGoodsReceipt, string(grn.Status), string(GRNStatusCompleted), op); err != nil {
		return GoodsReceipt{}, err
	}

	_, poItems, err := s.repo.GetPO(ctx, op.CompanyID, grn.PurchaseOrderID)
	if err != nil {
		return GoodsReceipt{}, err
	}
	remaining := make(map[int64]PurchaseOrderItem, len(poItems))
	for _, it := range poItems {
		remaining[it.ID] = it
	}

	var fullyReceived bool
	err = s.withRetry(ctx, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			ok, err := tx.UpdateGRNStatus(ctx, op.CompanyID, id, GRNStatusReceived, GRNStatusCompleted)
			if err != nil {
				return err
			}
			if !ok {
				cur, _, err := s.repo.GetGRN(ctx, op.CompanyID, id)
				if err != nil {
					return err
				}
				if cur.Status == GRNStatusCompleted {
					return &shared.AlreadyCompletedError{Number: cur.Number}
				}
				return &shared.ConcurrencyConflictError{Entity: "goods receipt"}
			}
			for _, it := range items {
				if it.PurchaseOrderItemID == 0 {
					continue
				}
				ok, err := tx.AddReceivedQuantity(ctx, op.CompanyID, it.PurchaseOrderItemID, it.ReceivedQuantity)
				if err != nil {
					return err
				}
				if !ok {
					line := remaining[it.PurchaseOrderItemID]
					return &shared.QuantityExceededError{
						ProductID: it.ProductID,
						Requested: it.ReceivedQuantity,
						Remaining: line.Remaining(),
					}
				}
			}
			completed, err := tx.CountCompletedGRNsForPO(ctx, op.CompanyID, grn.PurchaseOrderID)
			if err != nil {
				return err
			}
			if completed <= 1 {
				// First completed receipt. Normally the order moved to
				// ordered when the receipt was created; this covers data
				// that predates the system edge.
				if _, err := tx.UpdatePOStatus(ctx, op.CompanyID, grn.PurchaseOrderID, POStatusApproved, POStatusOrdered); err != nil {
					return err
				}
			}
			fullyReceived, err = tx.POItemsFullyReceived(ctx, op.CompanyID, grn.PurchaseOrderID)
			return err
		})
	})
	if err != nil {
		return GoodsReceipt{}, err
	}
	grn.Status = GRNStatusCompleted
	if fullyReceived {
		s.log.InfoContext(ctx, "purchase order fully received",
			"purchase_order_id", grn.PurchaseOrderID, "goods_receipt_id", id)
	}

	s.recordAudit(ctx, op, "goods_receipt.complete", "goods_receipt", id, map[string]any{
		"purchase_order_id": grn.PurchaseOrderID,
		"fully_received":    fullyReceived,
	})
	return grn, nil
}

// DeleteGRN removes a receipt that is still pending. Received or
// completed receipts are part of the accounting trail and cannot be
// deleted.
func (s *Service) DeleteGRN(ctx context.Context, op shared.OperationContext, id int64) error {
	if err := requireCompany(op); err != nil {
		return err
	}
	if err := requireRole(op, shared.RoleWarehouseManager); err != nil {
		return err
	}
	grn, _, err := s.repo.GetGRN(ctx, op.CompanyID, id)
	if err != nil {
		return err
	}
	if grn.Status != GRNStatusPending {
		return &shared.ConflictError{Reason: "goods receipt is " + string(grn.Status) + ", only pending receipts can be deleted"}
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.DeleteGRN(ctx, op.CompanyID, id)
		if err != nil {
			return err
		}
		if !ok {
			return &shared.ConcurrencyConflictError{Entity: "goods receipt"}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.recordAudit(ctx, op, "goods_receipt.delete", "goods_receipt", id, nil)
	return nil
}
