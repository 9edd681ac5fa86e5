package httpx

import (
	"context"

	"github.com/risinghq/bmsauth/pkg/jwtx"
)

type ctxKey string

const (
	CtxKeyUserID      ctxKey = "user_id"
	CtxKeyRole        ctxKey = "role"
	CtxKeyPermissions ctxKey = "permissions"
	CtxKeyClaims      ctxKey = "claims"
)

// UserIDFromContext returns the authenticated subject, or "" when the
// request did not pass AuthnMiddleware.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return v
	}
	return ""
}

// ClaimsFromContext returns the verified access-token claims.
func ClaimsFromContext(ctx context.Context) (jwtx.Claims, bool) {
	c, ok := ctx.Value(CtxKeyClaims).(jwtx.Claims)
	return c, ok
}

func permissionsFromCtx(ctx context.Context) []string {
	if v, ok := ctx.Value(CtxKeyPermissions).([]string); ok {
		return v
	}
	return nil
}
