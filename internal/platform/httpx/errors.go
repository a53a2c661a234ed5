package httpx

import (
	"errors"
	"net/http"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RespondError maps the domain error taxonomy onto HTTP statuses.
// Unrecognized errors become an opaque 500: internals never leak.
func RespondError(w http.ResponseWriter, err error) {
	var (
		validation  *shared.ValidationError
		authn       *shared.AuthenticationError
		authz       *shared.AuthorizationError
		transition  *shared.TransitionDeniedError
		quantity    *shared.QuantityExceededError
		overpayment *shared.OverpaymentError
		conflict    *shared.ConflictError
		concurrency *shared.ConcurrencyConflictError
		completed   *shared.AlreadyCompletedError
		notBillable *shared.GRNNotCompletedError
	)
	switch {
	case errors.As(err, &validation):
		Fail(w, http.StatusBadRequest, validation.Error())
	case errors.Is(err, shared.ErrInvalidCredentials):
		Fail(w, http.StatusUnauthorized, "invalid credentials")
	case errors.As(err, &authn):
		Fail(w, http.StatusUnauthorized, authn.Error())
	case errors.As(err, &authz):
		Fail(w, http.StatusForbidden, authz.Error())
	case errors.Is(err, shared.ErrNotFound):
		Fail(w, http.StatusNotFound, "not found")
	case errors.As(err, &transition):
		Fail(w, http.StatusConflict, transition.Error())
	case errors.As(err, &quantity):
		Fail(w, http.StatusConflict, quantity.Error())
	case errors.As(err, &overpayment):
		Fail(w, http.StatusConflict, overpayment.Error())
	case errors.As(err, &completed):
		Fail(w, http.StatusConflict, completed.Error())
	case errors.As(err, &notBillable):
		Fail(w, http.StatusConflict, notBillable.Error())
	case errors.As(err, &conflict):
		Fail(w, http.StatusConflict, conflict.Error())
	case errors.As(err, &concurrency):
		Fail(w, http.StatusConflict, concurrency.Error())
	default:
		Fail(w, http.StatusInternalServerError, "internal error")
	}
}
