package http

import (
	"errors"
	"net/http"

	"github.com/risinghq/bmsauth/internal/auth/service"
	"github.com/risinghq/bmsauth/internal/auth/store"
	"github.com/risinghq/bmsauth/pkg/httpx"
)

// MeHandler serves GET /v1/auth/me. It returns the live user record and a
// freshly resolved permission set rather than echoing the token snapshot,
// so a just-changed role shows up immediately.
type MeHandler struct {
	Store    store.Store
	Resolver *service.Resolver
}

func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "invalid_token")
		return
	}

	user, err := h.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	role, perms, err := h.Resolver.Snapshot(ctx, user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, userResponse{
		ID:          user.ID,
		Email:       user.Email,
		Role:        role.Name,
		Status:      user.Status,
		Permissions: perms,
	})
}
