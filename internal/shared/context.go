package shared

import "context"

// OperationContext identifies the actor and tenant for a call into the
// engine. It is threaded explicitly through service signatures so that
// authorization dependencies are visible, never ambient request state.
type OperationContext struct {
	UserID    int64
	Email     string
	CompanyID int64
	Roles     []string
}

// HasAnyRole reports whether the actor holds at least one of the given
// roles. The admin role satisfies every requirement.
func (oc OperationContext) HasAnyRole(roles ...string) bool {
	for _, held := range oc.Roles {
		if held == RoleAdmin {
			return true
		}
		for _, want := range roles {
			if held == want {
				return true
			}
		}
	}
	return false
}

// IsAdmin reports whether the actor holds the admin role.
func (oc OperationContext) IsAdmin() bool {
	for _, held := range oc.Roles {
		if held == RoleAdmin {
			return true
		}
	}
	return false
}

type operationContextKey struct{}

// ContextWithOperation stores the operation context in ctx.
func ContextWithOperation(ctx context.Context, op OperationContext) context.Context {
	return context.WithValue(ctx, operationContextKey{}, op)
}

// OperationFromContext extracts the operation context, reporting whether
// one was set by the tenant middleware.
func OperationFromContext(ctx context.Context) (OperationContext, bool) {
	op, ok := ctx.Value(operationContextKey{}).(OperationContext)
	return op, ok
}
