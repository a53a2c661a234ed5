// Package procurement implements the purchase document lifecycle:
// purchase orders, goods receipts, purchase invoices, and supplier
// payments, with transition authorization and cross-document invariants.
package procurement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// AuditRecorder persists audit trail entries for document mutations.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// DocumentNotifier announces lifecycle events that wait on someone else:
// an order submitted for approval, a receipt waiting for completion.
// A nil notifier disables announcements.
type DocumentNotifier interface {
	NotifyDocument(ctx context.Context, companyID int64, document string, documentID int64, event string) error
}

// Service orchestrates the document lifecycle. All status changes go
// through the transition guard; accumulator updates are conditional in
// SQL so concurrent writers cannot break the bounds.
type Service struct {
	repo   RepositoryPort
	audit  AuditRecorder
	notify DocumentNotifier
	log    *slog.Logger
	now    func() time.Time
}

// NewService constructs the procurement service. notify may be nil.
func NewService(repo RepositoryPort, audit AuditRecorder, notify DocumentNotifier, log *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		audit:  audit,
		notify: notify,
		log:    log,
		now:    time.Now,
	}
}

// documentNumber builds a unique human-readable document number, e.g.
// PO-20260828-7F3A21C4.
func documentNumber(prefix string, at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s-%s-%s", prefix, at.Format("20060102"), suffix)
}

// withRetry runs fn and retries exactly once on a serialization
// conflict. Conditional updates make the retry safe.
func (s *Service) withRetry(ctx context.Context, fn func(context.Context) error) error {
	err := fn(ctx)
	var conflict *shared.ConcurrencyConflictError
	if errors.As(err, &conflict) {
		s.log.WarnContext(ctx, "serialization conflict, retrying once", slog.String("entity", conflict.Entity))
		return fn(ctx)
	}
	return err
}

// recordAudit is best effort: a failed audit write is logged, never
// propagated into the business result.
func (s *Service) recordAudit(ctx context.Context, op shared.OperationContext, action, entity string, entityID int64, meta map[string]any) {
	err := s.audit.Record(ctx, shared.AuditLog{
		CompanyID: op.CompanyID,
		ActorID:   op.UserID,
		Action:    action,
		Entity:    entity,
		EntityID:  fmt.Sprintf("%d", entityID),
		Meta:      meta,
		At:        s.now(),
	})
	if err != nil {
		s.log.ErrorContext(ctx, "audit write failed",
			slog.String("action", action), slog.String("entity", entity), slog.Any("error", err))
	}
}

// notifyDocument is best effort, like recordAudit: a failed enqueue is
// logged, never propagated into the business result.
func (s *Service) notifyDocument(ctx context.Context, companyID int64, document string, documentID int64, event string) {
	if s.notify == nil {
		return
	}
	if err := s.notify.NotifyDocument(ctx, companyID, document, documentID, event); err != nil {
		s.log.WarnContext(ctx, "document notify failed",
			slog.String("document", document), slog.String("event", event), slog.Any("error", err))
	}
}

// requireRole gates an operation on membership roles. Admin passes every
// gate through HasAnyRole.
func requireRole(op shared.OperationContext, roles ...string) error {
	if op.HasAnyRole(roles...) {
		return nil
	}
	return &shared.AuthorizationError{Required: roles}
}

func requireCompany(op shared.OperationContext) error {
	if op.CompanyID <= 0 {
		return &shared.AuthenticationError{Reason: "no company scope"}
	}
	return nil
}
