package http

import "context"

type forwardedAuthKey struct{}

// WithForwardedAuthorization stores the caller's Authorization header so that
// outbound calls made on its behalf can pass it on verbatim.
func WithForwardedAuthorization(ctx context.Context, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, forwardedAuthKey{}, value)
}

// ForwardedAuthorization returns the Authorization header stored in ctx, if any.
func ForwardedAuthorization(ctx context.Context) string {
	v, _ := ctx.Value(forwardedAuthKey{}).(string)
	return v
}
