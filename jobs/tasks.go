// Package jobs runs background work: the overdue invoice sweep and
// audit-triggered notifications.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskInvoiceOverdueSweep flips pending/partial invoices past due to overdue.
	TaskInvoiceOverdueSweep = "invoice:overdue_sweep"
	// TaskDocumentNotify fans a document event out to interested users.
	TaskDocumentNotify = "document:notify"
)

// DocumentNotifyPayload describes a document event worth telling someone
// about: an order waiting for approval, a receipt waiting for completion.
type DocumentNotifyPayload struct {
	CompanyID  int64  `json:"company_id"`
	Document   string `json:"document"`
	DocumentID int64  `json:"document_id"`
	Event      string `json:"event"`
}

// NewInvoiceOverdueSweepTask constructs the sweep task. The payload is
// empty: the sweep always covers every tenant.
func NewInvoiceOverdueSweepTask() *asynq.Task {
	return asynq.NewTask(TaskInvoiceOverdueSweep, nil)
}

// NewDocumentNotifyTask constructs a notification task.
func NewDocumentNotifyTask(payload DocumentNotifyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDocumentNotify, data), nil
}
