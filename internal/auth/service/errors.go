package service

import "errors"

// Error taxonomy surfaced by the auth services. Lookup and cryptographic
// failures are normalized to the coarsest safe category before they cross
// this boundary, so "wrong password" and "unknown email" are
// indistinguishable to callers.
var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrAccountInactive    = errors.New("account_inactive")
	ErrInvalidToken       = errors.New("invalid_token")
	ErrExpiredToken       = errors.New("expired_token")
	ErrTokenReuseDetected = errors.New("token_reuse_detected")
	ErrAlreadyConsumed    = errors.New("already_consumed")
	ErrPermissionDenied   = errors.New("permission_denied")
)
