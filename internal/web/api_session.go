package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/haasonsaas/boxgrid/internal/auth"
	"github.com/haasonsaas/boxgrid/pkg/models"
)

// SignInRequest carries the identity provider's credential.
type SignInRequest struct {
	IDToken string `json:"id_token"`
}

// SessionResponse describes the signed-in user.
type SessionResponse struct {
	User      *models.User `json:"user"`
	ExpiresAt time.Time    `json:"expiresAt,omitzero"`
}

// apiSignIn handles POST /api/session.
func (h *Handler) apiSignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	sess, err := h.config.AuthService.SignIn(r.Context(), req.IDToken)
	switch {
	case errors.Is(err, auth.ErrAuthDisabled):
		h.jsonError(w, "authentication is disabled", http.StatusNotFound)
		return
	case errors.Is(err, auth.ErrInvalidToken):
		h.jsonError(w, "invalid credential", http.StatusUnauthorized)
		return
	case err != nil:
		h.logger.ErrorContext(r.Context(), "sign in failed", "error", err)
		h.jsonError(w, "sign in failed", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, h.config.AuthService.SessionCookie(sess))
	h.jsonResponse(w, http.StatusOK, SessionResponse{User: sess.User, ExpiresAt: sess.ExpiresAt})
}

// apiSignOut handles DELETE /api/session. It always clears the cookie.
func (h *Handler) apiSignOut(w http.ResponseWriter, r *http.Request) {
	service := h.config.AuthService
	if !service.Enabled() {
		h.jsonError(w, "authentication is disabled", http.StatusNotFound)
		return
	}
	if token := service.TokenFromRequest(r); token != "" {
		if err := service.SignOut(token); err != nil {
			h.logger.DebugContext(r.Context(), "sign out with unusable session", "error", err)
		}
	}
	http.SetCookie(w, service.ClearCookie())
	w.WriteHeader(http.StatusNoContent)
}

// apiWhoAmI handles GET /api/session for signed-in callers.
func (h *Handler) apiWhoAmI(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	h.jsonResponse(w, http.StatusOK, SessionResponse{User: user})
}
