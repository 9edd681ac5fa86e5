package http

import (
	"errors"
	"net/http"

	"github.com/risinghq/bmsauth/internal/auth/obs"
	"github.com/risinghq/bmsauth/internal/auth/service"
	"github.com/risinghq/bmsauth/pkg/httpx"
)

// RefreshHandler serves POST /v1/auth/refresh. A successful call rotates
// the refresh token; presenting a terminal token surfaces 401 and, with
// reuse detection on, has already revoked the whole rotation chain.
type RefreshHandler struct {
	AuthService *service.AuthService
}

func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req refreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	pair, err := h.AuthService.RefreshTokens(ctx, req.RefreshToken, clientIP(r))
	if err != nil {
		if errors.Is(err, service.ErrTokenReuseDetected) {
			obs.RecordTokenReuse()
			obs.RecordAuthOperation("refresh", "reuse_detected")
		} else {
			obs.RecordAuthOperation("refresh", "failure")
		}
		writeServiceError(w, err)
		return
	}

	obs.RecordAuthOperation("refresh", "success")
	httpx.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    int64(pair.ExpiresIn.Seconds()),
	})
}
