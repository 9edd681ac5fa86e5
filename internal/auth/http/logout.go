package http

import (
	"net/http"

	"github.com/risinghq/bmsauth/internal/auth/obs"
	"github.com/risinghq/bmsauth/internal/auth/service"
	"github.com/risinghq/bmsauth/pkg/httpx"
	"github.com/risinghq/bmsauth/pkg/slogx"
)

// LogoutHandler serves POST /v1/auth/logout. Idempotent: unknown or
// already-revoked tokens still get 200 so the endpoint cannot be used to
// scan for valid token values.
type LogoutHandler struct {
	AuthService *service.AuthService
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req logoutRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	if req.RefreshToken != "" {
		if err := h.AuthService.Logout(ctx, req.RefreshToken); err != nil {
			log.Warn("logout revocation failed", "err", err)
		}
	}

	obs.RecordAuthOperation("logout", "success")
	httpx.WriteJSON(w, http.StatusOK, okResponse)
}
