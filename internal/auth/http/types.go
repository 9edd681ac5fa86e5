package http

import (
	"errors"
	"net/http"

	"github.com/risinghq/bmsauth/internal/auth/service"
	"github.com/risinghq/bmsauth/pkg/httpx"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"` // seconds
}

type userResponse struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Status      string   `json:"status"`
	Permissions []string `json:"permissions"`
}

type loginResponse struct {
	tokenResponse
	User userResponse `json:"user"`
}

type checkPermissionRequest struct {
	Permission string `json:"permission"`
}

type checkPermissionResponse struct {
	Allowed bool `json:"allowed"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type statusResponse struct {
	Status string `json:"status"`
}

var okResponse = statusResponse{Status: "ok"}

func writeError(w http.ResponseWriter, status int, code string) {
	httpx.WriteJSON(w, status, errorResponse{Error: code})
}

// writeServiceError maps the service error taxonomy onto HTTP. Anything
// outside the taxonomy is an internal failure and stays opaque.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
	case errors.Is(err, service.ErrAccountInactive):
		writeError(w, http.StatusForbidden, "account_inactive")
	case errors.Is(err, service.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, "invalid_token")
	case errors.Is(err, service.ErrExpiredToken):
		writeError(w, http.StatusUnauthorized, "expired_token")
	case errors.Is(err, service.ErrTokenReuseDetected):
		writeError(w, http.StatusUnauthorized, "token_reuse_detected")
	case errors.Is(err, service.ErrAlreadyConsumed):
		writeError(w, http.StatusBadRequest, "already_consumed")
	case errors.Is(err, service.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "permission_denied")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}

// clientIP extracts the caller address for the refresh token audit trail.
func clientIP(r *http.Request) string {
	return httpx.IPKeyExtractor(r)
}
