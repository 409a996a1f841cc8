package auth

import "context"

type contextKey string

const claimsKey contextKey = "fitlog-auth-claims"

// WithClaims stores claims on the context.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// FromContext retrieves claims stored by WithClaims.
func FromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok
}

// ContextIdentity resolves the ambient user from request context claims. It is
// the identity lookup the record store consults before every remote operation.
type ContextIdentity struct{}

// CurrentUserID returns the authenticated user's id, or false when no
// identity is present.
func (ContextIdentity) CurrentUserID(ctx context.Context) (string, bool) {
	claims, ok := FromContext(ctx)
	if !ok || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}
