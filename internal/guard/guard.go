// Package guard decides whether a document status change is structurally
// and authorizationally valid. It is a pure policy table: callers mutate
// state only after an allow decision.
package guard

import (
	"fmt"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// DocumentType identifies a lifecycle document kind.
type DocumentType string

const (
	DocPurchaseOrder DocumentType = "purchase_order"
	DocGoodsReceipt  DocumentType = "goods_receipt"
	DocInvoice       DocumentType = "purchase_invoice"
	DocPayment       DocumentType = "supplier_payment"
)

// edge is one allowed transition plus the roles permitted to fire it.
// An empty role list marks a system transition that needs no human role.
type edge struct {
	from  string
	to    string
	roles []string
}

var transitions = map[DocumentType][]edge{
	DocPurchaseOrder: {
		{from: "draft", to: "pending", roles: []string{shared.RoleWarehouseManager}},
		{from: "pending", to: "approved", roles: []string{shared.RoleAccounts}},
		// Fired by the receipt engine when the first receipt is created.
		{from: "approved", to: "ordered", roles: nil},
		{from: "draft", to: "cancelled", roles: []string{shared.RoleAdmin}},
		{from: "pending", to: "cancelled", roles: []string{shared.RoleAdmin}},
	},
	DocGoodsReceipt: {
		{from: "pending", to: "received", roles: []string{shared.RoleWarehouseManager}},
		{from: "received", to: "completed", roles: []string{shared.RoleAccounts}},
	},
	DocInvoice: {
		// pending/partial/paid/overdue flips are derived from paid_amount
		// and due_date, never fired by a caller. Only cancellation is a
		// human transition.
		{from: "pending", to: "cancelled", roles: []string{shared.RoleAdmin}},
		{from: "partial", to: "cancelled", roles: []string{shared.RoleAdmin}},
	},
	DocPayment: {
		{from: "pending", to: "completed", roles: []string{shared.RoleAccounts}},
		{from: "pending", to: "cancelled", roles: []string{shared.RoleAccounts}},
	},
}

// Decision is the outcome of an Authorize call.
type Decision struct {
	Allowed bool
	Reason  string
}

// Authorize checks the transition graph for documentType and the actor's
// roles. The admin role satisfies every edge regardless of its declared
// roles. Denials carry a reason; Authorize never mutates anything.
func Authorize(documentType DocumentType, currentStatus, targetStatus string, actorRoles []string) Decision {
	edges, ok := transitions[documentType]
	if !ok {
		return Decision{Reason: fmt.Sprintf("unknown document type %q", documentType)}
	}
	for _, e := range edges {
		if e.from != currentStatus || e.to != targetStatus {
			continue
		}
		if len(e.roles) == 0 || hasAny(actorRoles, e.roles) {
			return Decision{Allowed: true}
		}
		return Decision{Reason: fmt.Sprintf("%s -> %s requires one of %v", currentStatus, targetStatus, e.roles)}
	}
	return Decision{Reason: fmt.Sprintf("no transition %s -> %s for %s", currentStatus, targetStatus, documentType)}
}

// Check wraps Authorize into the error taxonomy: a structural miss or a
// missing role becomes a TransitionDeniedError.
func Check(documentType DocumentType, currentStatus, targetStatus string, op shared.OperationContext) error {
	d := Authorize(documentType, currentStatus, targetStatus, op.Roles)
	if d.Allowed {
		return nil
	}
	return &shared.TransitionDeniedError{
		Document: string(documentType),
		From:     currentStatus,
		To:       targetStatus,
		Reason:   d.Reason,
	}
}

// AllowedTargets lists the statuses reachable from currentStatus with the
// given roles. Used by handlers to surface available actions.
func AllowedTargets(documentType DocumentType, currentStatus string, actorRoles []string) []string {
	var targets []string
	for _, e := range transitions[documentType] {
		if e.from != currentStatus {
			continue
		}
		if len(e.roles) == 0 || hasAny(actorRoles, e.roles) {
			targets = append(targets, e.to)
		}
	}
	return targets
}

func hasAny(held []string, required []string) bool {
	for _, h := range held {
		if h == shared.RoleAdmin {
			return true
		}
		for _, r := range required {
			if h == r {
				return true
			}
		}
	}
	return false
}
