package http

import (
	"net/http"
	"strings"

	"github.com/risinghq/bmsauth/internal/auth/obs"
	"github.com/risinghq/bmsauth/internal/auth/service"
	"github.com/risinghq/bmsauth/pkg/httpx"
	"github.com/risinghq/bmsauth/pkg/slogx"
)

// MinPasswordLength is the floor for new passwords set through the reset
// flow.
const MinPasswordLength = 8

// ForgotPasswordHandler serves POST /v1/auth/forgot-password. The
// response is 200 whether or not the email belongs to an account.
type ForgotPasswordHandler struct {
	AuthService *service.AuthService
}

func (h *ForgotPasswordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req forgotPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	if err := h.AuthService.ForgotPassword(ctx, req.Email); err != nil {
		// Storage failure. Still answer 200: the error reveals nothing
		// useful to the caller and retrying is harmless.
		log.Error("forgot-password failed", "err", err)
	}

	obs.RecordAuthOperation("forgot_password", "success")
	httpx.WriteJSON(w, http.StatusOK, okResponse)
}

// ResetPasswordHandler serves POST /v1/auth/reset-password. Consuming the
// token, storing the new hash, and revoking all sessions happen in one
// transaction.
type ResetPasswordHandler struct {
	AuthService *service.AuthService
}

func (h *ResetPasswordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req resetPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Token == "" || len(req.NewPassword) < MinPasswordLength {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	if err := h.AuthService.ResetPassword(ctx, req.Token, req.NewPassword); err != nil {
		obs.RecordAuthOperation("reset_password", "failure")
		writeResetError(w, err)
		return
	}

	obs.RecordAuthOperation("reset_password", "success")
	httpx.WriteJSON(w, http.StatusOK, okResponse)
}

// writeResetError maps token problems to 400 per the endpoint contract;
// everything else falls through to the shared mapping.
func writeResetError(w http.ResponseWriter, err error) {
	switch err {
	case service.ErrInvalidToken:
		writeError(w, http.StatusBadRequest, "invalid_token")
	case service.ErrExpiredToken:
		writeError(w, http.StatusBadRequest, "expired_token")
	case service.ErrAlreadyConsumed:
		writeError(w, http.StatusBadRequest, "already_consumed")
	default:
		writeServiceError(w, err)
	}
}
