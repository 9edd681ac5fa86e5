package httpx

import (
	"net/http"
	"strings"
)

// RequirePermission gates a handler on a single permission from the access
// token snapshot. The snapshot may be minutes stale; operations that cannot
// tolerate that re-check through the permission service instead.
func RequirePermission(required string) Middleware {
	return RequireAnyPermission(required)
}

// RequireAnyPermission passes when the caller holds at least one of the
// listed permissions.
func RequireAnyPermission(required ...string) Middleware {
	want := make(map[string]struct{}, len(required))
	for _, p := range required {
		want[p] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range permissionsFromCtx(r.Context()) {
				if _, ok := want[p]; ok {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeBearerPermissionError(w, required...)
		})
	}
}

// RFC 6750-style error for insufficient permissions. A distinct typed
// response so callers can tell "denied" from "unauthenticated".
func writeBearerPermissionError(w http.ResponseWriter, required ...string) {
	w.Header().Set("WWW-Authenticate",
		`Bearer error="insufficient_scope", scope="`+strings.Join(required, " ")+`"`)
	WriteJSON(w, http.StatusForbidden, map[string]string{
		"error":   "permission_denied",
		"message": "You do not have permission to perform this action.",
	})
}
