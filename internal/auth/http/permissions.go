package http

import (
	"errors"
	"net/http"

	"github.com/risinghq/bmsauth/internal/auth/service"
	"github.com/risinghq/bmsauth/pkg/httpx"
)

// CheckPermissionHandler serves POST /v1/permissions/check: a live
// re-resolution against current reference data for operations where a
// minutes-stale token snapshot is not good enough. "Denied" is a normal
// 200 response with allowed=false; only transport and account problems
// are errors.
type CheckPermissionHandler struct {
	Resolver *service.Resolver
}

func (h *CheckPermissionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "invalid_token")
		return
	}

	var req checkPermissionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || req.Permission == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	err := h.Resolver.CheckPermission(ctx, userID, req.Permission)
	switch {
	case err == nil:
		httpx.WriteJSON(w, http.StatusOK, checkPermissionResponse{Allowed: true})
	case errors.Is(err, service.ErrPermissionDenied):
		httpx.WriteJSON(w, http.StatusOK, checkPermissionResponse{Allowed: false})
	case errors.Is(err, service.ErrAccountInactive):
		writeError(w, http.StatusForbidden, "account_inactive")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}
