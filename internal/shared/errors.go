package shared

import (
	"errors"
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// amounts renders monetary and quantity bounds in error messages with
// thousands separators so callers can read the remaining bound directly.
var amounts = message.NewPrinter(language.English)

var (
	// ErrNotFound indicates the requested record does not exist in the tenant.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError reports malformed input. Recoverable client-side, never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// AuthenticationError reports a missing, invalid, or unverifiable token.
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	return "authentication: " + e.Reason
}

// AuthorizationError reports that the actor lacks every required role.
type AuthorizationError struct {
	Required []string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authorization: requires one of %v", e.Required)
}

// TransitionDeniedError reports a rejected status transition, carrying
// the attempted edge so the caller can see what was allowed.
type TransitionDeniedError struct {
	Document string
	From     string
	To       string
	Reason   string
}

func (e *TransitionDeniedError) Error() string {
	return fmt.Sprintf("transition denied: %s %s->%s: %s", e.Document, e.From, e.To, e.Reason)
}

// QuantityExceededError reports a receipt request above the remaining
// receivable quantity of a purchase order item.
type QuantityExceededError struct {
	ProductID int64
	Requested float64
	Remaining float64
}

func (e *QuantityExceededError) Error() string {
	return amounts.Sprintf("quantity exceeded: product %d: requested %.2f, remaining %.2f", e.ProductID, e.Requested, e.Remaining)
}

// OverpaymentError reports a payment above the remaining invoice balance.
type OverpaymentError struct {
	Requested float64
	Remaining float64
}

func (e *OverpaymentError) Error() string {
	return amounts.Sprintf("overpayment: requested %.2f, remaining balance %.2f", e.Requested, e.Remaining)
}

// ConflictError reports a cross-document invariant violation, e.g.
// cancelling a purchase order that already has receipts.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Reason
}

// ConcurrencyConflictError reports a lost optimistic race on a shared
// accumulator. Safe to retry once.
type ConcurrencyConflictError struct {
	Entity string
}

func (e *ConcurrencyConflictError) Error() string {
	return "concurrent update conflict on " + e.Entity
}

// AlreadyCompletedError reports a repeated completion of a goods receipt.
// The repeated call never increments accumulators a second time.
type AlreadyCompletedError struct {
	Number string
}

func (e *AlreadyCompletedError) Error() string {
	return "goods receipt " + e.Number + " already completed"
}

// GRNNotCompletedError reports invoicing from a receipt that has not
// reached completed status.
type GRNNotCompletedError struct {
	Number string
	Status string
}

func (e *GRNNotCompletedError) Error() string {
	return fmt.Sprintf("goods receipt %s is %s, must be completed", e.Number, e.Status)
}
