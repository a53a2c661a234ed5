package procurement

import (
	"context"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/guard"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Payment methods. Cash settles immediately; transfer and cheque start
// pending until cleared.
const (
	PaymentMethodCash     = "cash"
	PaymentMethodTransfer = "transfer"
	PaymentMethodCheque   = "cheque"
)

// CreatePaymentInput carries the fields for a new supplier payment.
type CreatePaymentInput struct {
	PurchaseInvoiceID int64
	Amount            float64
	Method            string
	PaymentDate       time.Time
}

// CreatePayment records a payment against an invoice. The amount counts
// toward paid_amount immediately regardless of clearing status: only
// cancellation releases it. The accumulator update is conditional on the
// invoice balance, so a concurrent overpayment loses the race cleanly.
func (s *Service) CreatePayment(ctx context.Context, op shared.OperationContext, in CreatePaymentInput) (SupplierPayment, error) {
	if err := requireCompany(op); err != nil {
		return SupplierPayment{}, err
	}
	if err := requireRole(op, shared.RoleAccounts); err != nil {
		return SupplierPayment{}, err
	}
	if in.PurchaseInvoiceID <= 0 {
		return SupplierPayment{}, &shared.ValidationError{Field: "purchase_invoice_id", Reason: "required"}
	}
	if in.Amount <= 0 {
		return SupplierPayment{}, &shared.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	status, err := initialPaymentStatus(in.Method)
	if err != nil {
		return SupplierPayment{}, err
	}

	amount := Round2(in.Amount)
	now := s.now()
	payment := SupplierPayment{
		CompanyID:         op.CompanyID,
		PurchaseInvoiceID: in.PurchaseInvoiceID,
		Number:            documentNumber("PAY", now),
		Amount:            amount,
		Method:            in.Method,
		Status:            status,
		PaymentDate:       orNow(in.PaymentDate, now),
		CreatedBy:         op.UserID,
	}

	err = s.withRetry(ctx, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			inv, ok, err := tx.AddPaidAmount(ctx, op.CompanyID, in.PurchaseInvoiceID, amount)
			if err != nil {
				return err
			}
			if !ok {
				return s.explainPaidAmountMiss(ctx, tx, op.CompanyID, in.PurchaseInvoiceID, amount)
			}
			if err := tx.SetDerivedInvoiceStatus(ctx, op.CompanyID, inv.ID, DeriveInvoiceStatus(inv.Status, inv.PaidAmount, inv.TotalAmount, inv.DueDate, now)); err != nil {
				return err
			}
			id, err := tx.CreatePayment(ctx, payment)
			if err != nil {
				return err
			}
			payment.ID = id
			return nil
		})
	})
	if err != nil {
		return SupplierPayment{}, err
	}

	s.recordAudit(ctx, op, "supplier_payment.create", "supplier_payment", payment.ID, map[string]any{
		"number": payment.Number, "invoice_id": in.PurchaseInvoiceID, "amount": amount, "method": in.Method,
	})
	return payment, nil
}

// explainPaidAmountMiss turns a failed conditional accumulator update
// into the precise domain error.
func (s *Service) explainPaidAmountMiss(ctx context.Context, tx TxRepository, companyID, invoiceID int64, delta float64) error {
	inv, err := tx.GetInvoice(ctx, companyID, invoiceID)
	if err != nil {
		return err
	}
	if inv.Status == InvoiceStatusCancelled {
		return &shared.ConflictError{Reason: "invoice " + inv.Number + " is cancelled"}
	}
	if delta > 0 {
		return &shared.OverpaymentError{Requested: delta, Remaining: inv.Balance()}
	}
	return &shared.ConcurrencyConflictError{Entity: "purchase invoice"}
}

// GetPayment returns one payment.
func (s *Service) GetPayment(ctx context.Context, op shared.OperationContext, id int64) (SupplierPayment, error) {
	if err := requireCompany(op); err != nil {
		return SupplierPayment{}, err
	}
	return s.repo.GetPayment(ctx, op.CompanyID, id)
}

// ListPayments returns a page of payments.
func (s *Service) ListPayments(ctx context.Context, op shared.OperationContext, limit, offset int, filters ListFilters) ([]PaymentListItem, int, error) {
	if err := requireCompany(op); err != nil {
		return nil, 0, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListPayments(ctx, op.CompanyID, limit, offset, filters)
}

// UpdatePaymentAmount changes the amount of a payment that has not
// cleared. The invoice accumulator moves by the difference under the
// same bounds as creation.
func (s *Service) UpdatePaymentAmount(ctx context.Context, op shared.OperationContext, id int64, amount float64) (SupplierPayment, error) {
	if err := requireCompany(op); err != nil {
		return SupplierPayment{}, err
	}
	if err := requireRole(op, shared.RoleAccounts); err != nil {
		return SupplierPayment{}, err
	}
	if amount <= 0 {
		return SupplierPayment{}, &shared.ValidationError{Field: "amount", Reason: "must be positive"}
	}

	payment, err := s.repo.GetPayment(ctx, op.CompanyID, id)
	if err != nil {
		return SupplierPayment{}, err
	}
	if payment.Status != PaymentStatusPending {
		return SupplierPayment{}, &shared.ConflictError{Reason: "payment is " + string(payment.Status) + ", only pending payments can be edited"}
	}

	amount = Round2(amount)
	delta := Round2(amount - payment.Amount)
	now := s.now()

	err = s.withRetry(ctx, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			ok, err := tx.UpdatePaymentAmount(ctx, op.CompanyID, id, amount)
			if err != nil {
				return err
			}
			if !ok {
				return &shared.ConcurrencyConflictError{Entity: "supplier payment"}
			}
			if delta == 0 {
				return nil
			}
			inv, ok, err := tx.AddPaidAmount(ctx, op.CompanyID, payment.PurchaseInvoiceID, delta)
			if err != nil {
				return err
			}
			if !ok {
				return s.explainPaidAmountMiss(ctx, tx, op.CompanyID, payment.PurchaseInvoiceID, delta)
			}
			return tx.SetDerivedInvoiceStatus(ctx, op.CompanyID, inv.ID, DeriveInvoiceStatus(inv.Status, inv.PaidAmount, inv.TotalAmount, inv.DueDate, now))
		})
	})
	if err != nil {
		return SupplierPayment{}, err
	}
	payment.Amount = amount

	s.recordAudit(ctx, op, "supplier_payment.update", "supplier_payment", id, map[string]any{"amount": amount})
	return payment, nil
}

// CompletePayment marks a pending payment as cleared. The invoice
// accumulator already counts it, so only the status moves.
func (s *Service) CompletePayment(ctx context.Context, op shared.OperationContext, id int64) (SupplierPayment, error) {
	return s.transitionPayment(ctx, op, id, PaymentStatusCompleted, "supplier_payment.complete")
}

// CancelPayment voids a pending payment and releases its amount from the
// invoice accumulator, re-deriving the invoice status. Completed
// payments cannot be cancelled.
func (s *Service) CancelPayment(ctx context.Context, op shared.OperationContext, id int64) (SupplierPayment, error) {
	if err := requireCompany(op); err != nil {
		return SupplierPayment{}, err
	}
	payment, err := s.repo.GetPayment(ctx, op.CompanyID, id)
	if err != nil {
		return SupplierPayment{}, err
	}
	if err := guard.Check(guard.DocPayment, string(payment.Status), string(PaymentStatusCancelled), op); err != nil {
		return SupplierPayment{}, err
	}

	now := s.now()
	err = s.withRetry(ctx, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			ok, err := tx.UpdatePaymentStatus(ctx, op.CompanyID, id, PaymentStatusPending, PaymentStatusCancelled)
			if err != nil {
				return err
			}
			if !ok {
				return &shared.ConcurrencyConflictError{Entity: "supplier payment"}
			}
			inv, ok, err := tx.AddPaidAmount(ctx, op.CompanyID, payment.PurchaseInvoiceID, -payment.Amount)
			if err != nil {
				return err
			}
			if !ok {
				return s.explainPaidAmountMiss(ctx, tx, op.CompanyID, payment.PurchaseInvoiceID, -payment.Amount)
			}
			return tx.SetDerivedInvoiceStatus(ctx, op.CompanyID, inv.ID, DeriveInvoiceStatus(inv.Status, inv.PaidAmount, inv.TotalAmount, inv.DueDate, now))
		})
	})
	if err != nil {
		return SupplierPayment{}, err
	}
	payment.Status = PaymentStatusCancelled

	s.recordAudit(ctx, op, "supplier_payment.cancel", "supplier_payment", id, map[string]any{
		"invoice_id": payment.PurchaseInvoiceID, "amount": payment.Amount,
	})
	return payment, nil
}

func (s *Service) transitionPayment(ctx context.Context, op shared.OperationContext, id int64, to PaymentStatus, action string) (SupplierPayment, error) {
	if err := requireCompany(op); err != nil {
		return SupplierPayment{}, err
	}
	payment, err := s.repo.GetPayment(ctx, op.CompanyID, id)
	if err != nil {
		return SupplierPayment{}, err
	}
	if err := guard.Check(guard.DocPayment, string(payment.Status), string(to), op); err != nil {
		return SupplierPayment{}, err
	}

	from := payment.Status
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.UpdatePaymentStatus(ctx, op.CompanyID, id, from, to)
		if err != nil {
			return err
		}
		if !ok {
			return &shared.ConcurrencyConflictError{Entity: "supplier payment"}
		}
		return nil
	})
	if err != nil {
		return SupplierPayment{}, err
	}
	payment.Status = to

	s.recordAudit(ctx, op, action, "supplier_payment", id, map[string]any{
		"from": string(from), "to": string(to),
	})
	return payment, nil
}

func initialPaymentStatus(method string) (PaymentStatus, error) {
	switch method {
	case PaymentMethodCash:
		return PaymentStatusCompleted, nil
	case PaymentMethodTransfer, PaymentMethodCheque:
		return PaymentStatusPending, nil
	default:
		return "", &shared.ValidationError{Field: "method", Reason: "must be cash, transfer, or cheque"}
	}
}
