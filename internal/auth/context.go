package auth

import "context"

type principalKey struct{}

// ContextWithPrincipal returns a child context carrying the resolved
// principal. The HTTP layer installs it once per request after the bearer
// token has been validated; handlers and the audit logger read it back
// with PrincipalFromContext.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal resolved for the current
// request, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
