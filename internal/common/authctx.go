package common

import "context"

// Role enumerates the caller roles recognised by the API.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleSupplier Role = "supplier"
	RoleAdmin    Role = "admin"
)

// ParseRole validates a raw role claim.
func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleCustomer, RoleSupplier, RoleAdmin:
		return Role(raw), true
	default:
		return "", false
	}
}

// Caller identifies the authenticated company account making a request.
type Caller struct {
	ID   string
	Role Role
}

// IsAdmin reports whether the caller holds the privileged role.
func (c Caller) IsAdmin() bool { return c.Role == RoleAdmin }

type ctxKey string

const callerKey ctxKey = "auth/caller"

// WithCaller stores the authenticated caller on the provided context.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

// CallerFrom extracts the authenticated caller from the context if present.
func CallerFrom(ctx context.Context) (Caller, bool) {
	v := ctx.Value(callerKey)
	if v == nil {
		return Caller{}, false
	}
	c, ok := v.(Caller)
	return c, ok
}
