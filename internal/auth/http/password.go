package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/staffdeskhq/staffdesk/internal/auth/service"
	"github.com/staffdeskhq/staffdesk/pkg/httpx"
	"github.com/staffdeskhq/staffdesk/pkg/slogx"
)

// PasswordHandler serves the reset and change flows.
type PasswordHandler struct {
	AuthService *service.AuthService
}

// HandleResetRequest handles POST /v1/password/reset. The response is the
// same whether or not the email exists, so the endpoint cannot be used for
// account enumeration. The reset token is logged for operator delivery until
// a mail sender is wired up.
func (h *PasswordHandler) HandleResetRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req ResetRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email is required")
		return
	}

	token, err := h.AuthService.RequestPasswordReset(ctx, req.Email)
	if err != nil {
		log.Error("reset request failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "An internal error occurred")
		return
	}
	if token != "" {
		// TODO: hand off to the notification service once it exists.
		log.Info("password reset token issued", "email", req.Email)
	}

	httpx.WriteJSON(w, http.StatusAccepted, map[string]string{
		"message": "If the account exists, a reset token has been issued",
	})
}

// HandleResetConfirm handles POST /v1/password/reset/confirm.
func (h *PasswordHandler) HandleResetConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req ResetConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return
	}
	if req.Token == "" || len(req.NewPassword) < 8 {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "token and a password of at least 8 characters are required")
		return
	}

	if err := h.AuthService.ConfirmPasswordReset(ctx, req.Token, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrResetTokenInvalid) {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_reset_token", "Reset token is invalid, expired, or already used")
			return
		}
		log.Error("reset confirm failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "An internal error occurred")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleChange handles POST /v1/password/change for an authenticated user.
func (h *PasswordHandler) HandleChange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := ctx.Value(httpx.CtxKeyUserID).(string)
	if !ok || userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Missing or invalid access token")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return
	}
	if req.CurrentPassword == "" || len(req.NewPassword) < 8 {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "current_password and a new password of at least 8 characters are required")
		return
	}

	if err := h.AuthService.ChangePassword(ctx, userID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Current password is incorrect")
			return
		}
		log.Error("password change failed", "user_id", userID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "An internal error occurred")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
