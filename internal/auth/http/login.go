package http

import (
	"net/http"
	"strings"

	"github.com/risinghq/bmsauth/internal/auth/obs"
	"github.com/risinghq/bmsauth/internal/auth/service"
	"github.com/risinghq/bmsauth/pkg/httpx"
)

// LoginHandler serves POST /v1/auth/login. Invalid email and wrong
// password produce the same 401 so the endpoint cannot be used to probe
// which accounts exist.
type LoginHandler struct {
	AuthService *service.AuthService
	Resolver    *service.Resolver
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	pair, user, err := h.AuthService.Login(ctx, req.Email, req.Password, clientIP(r))
	if err != nil {
		obs.RecordAuthOperation("login", "failure")
		writeServiceError(w, err)
		return
	}

	role, perms, err := h.Resolver.Snapshot(ctx, user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	obs.RecordAuthOperation("login", "success")
	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		tokenResponse: tokenResponse{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
			TokenType:    pair.TokenType,
			ExpiresIn:    int64(pair.ExpiresIn.Seconds()),
		},
		User: userResponse{
			ID:          user.ID,
			Email:       user.Email,
			Role:        role.Name,
			Status:      user.Status,
			Permissions: perms,
		},
	})
}
