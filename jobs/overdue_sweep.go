package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// OverdueMarker is the slice of the invoice engine the sweep needs.
type OverdueMarker interface {
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
}

// NewOverdueSweepHandler returns the handler for TaskInvoiceOverdueSweep.
// The underlying update is idempotent, so a retried task is harmless.
func NewOverdueSweepHandler(marker OverdueMarker, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		n, err := marker.MarkOverdue(ctx, time.Now())
		if err != nil {
			logger.ErrorContext(ctx, "overdue sweep", slog.Any("error", err))
			return err
		}
		if n > 0 {
			logger.InfoContext(ctx, "overdue sweep", slog.Int64("invoices_flagged", n))
		}
		return nil
	}
}

// NewDocumentNotifyHandler returns the handler for TaskDocumentNotify.
// Delivery is a log line until a mail transport is wired up.
func NewDocumentNotifyHandler(logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload DocumentNotifyPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		logger.InfoContext(ctx, "document event",
			slog.Int64("company_id", payload.CompanyID),
			slog.String("document", payload.Document),
			slog.Int64("document_id", payload.DocumentID),
			slog.String("event", payload.Event))
		return nil
	}
}
