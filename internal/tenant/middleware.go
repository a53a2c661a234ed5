package tenant

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/meridian-erp/meridian-erp/internal/auth"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// CompanyHeader selects the tenant for the request. The token itself is
// tenant-agnostic; membership is checked here on every request.
const CompanyHeader = "X-Company-ID"

// Authenticator resolves bearer tokens.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Identity, error)
}

// Middleware authenticates the request and stamps the operation context.
type Middleware struct {
	Auth  Authenticator
	Roles *RoleCache
	Log   *slog.Logger
}

// Require authenticates the bearer token, validates company membership,
// and injects the operation context. Requests without a valid token get
// 401; members of no such company get 403.
func (m Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.BearerToken(r)
		if token == "" {
			httpx.Fail(w, http.StatusUnauthorized, "authentication required")
			return
		}
		id, err := m.Auth.Authenticate(r.Context(), token)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}

		companyID, err := strconv.ParseInt(r.Header.Get(CompanyHeader), 10, 64)
		if err != nil || companyID <= 0 {
			httpx.Fail(w, http.StatusBadRequest, "missing or invalid "+CompanyHeader+" header")
			return
		}

		roles, member, err := m.Roles.Resolve(r.Context(), companyID, id.UserID)
		if err != nil {
			m.Log.ErrorContext(r.Context(), "resolve roles", slog.Any("error", err))
			httpx.Fail(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !member {
			httpx.Fail(w, http.StatusForbidden, "not a member of this company")
			return
		}

		op := shared.OperationContext{
			UserID:    id.UserID,
			Email:     id.Email,
			CompanyID: companyID,
			Roles:     roles,
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithOperation(r.Context(), op)))
	})
}
