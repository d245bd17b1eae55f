package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/staffdeskhq/staffdesk/internal/auth/service"
	"github.com/staffdeskhq/staffdesk/pkg/httpx"
	"github.com/staffdeskhq/staffdesk/pkg/slogx"
)

// MFAHandler serves TOTP enrollment, activation, and removal.
type MFAHandler struct {
	AuthService *service.AuthService
	MFAService  *service.MFAService
}

// HandleEnroll handles POST /v1/mfa/totp/enroll. Accepts either a full
// access token or the intermediate MFA token, so users routed into MFA setup
// straight from login can reach it.
func (h *MFAHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	// 1. Resolve the caller from either accepted token kind
	user, err := h.AuthService.AuthenticateForMFASetup(ctx, r.Header.Get("Authorization"))
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "A valid access or MFA token is required")
			return
		}
		log.Error("mfa setup authentication failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "An internal error occurred")
		return
	}

	// 2. Generate and persist the pending secret
	enrollment, err := h.MFAService.EnrollTOTP(ctx, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMFAAlreadyEnabled):
			httpx.WriteError(w, http.StatusBadRequest, "mfa_already_enabled", "MFA is already enabled for this user")
		case errors.Is(err, service.ErrPasswordChangeRequired):
			httpx.WriteError(w, http.StatusForbidden, "password_change_required", "Change the temporary password before enabling MFA")
		default:
			log.Error("failed to enroll TOTP", "user_id", user.ID, "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "An internal error occurred")
		}
		return
	}

	// 3. Return the cleartext secret; it is never shown again
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, TOTPEnrollResponse{
		Secret:     enrollment.Secret,
		OTPAuthURL: enrollment.OTPAuthURL,
		Issuer:     enrollment.Issuer,
		Account:    enrollment.Account,
	})
}

// HandleActivate handles POST /v1/mfa/totp/activate. Same dual-token rule as
// enrollment.
func (h *MFAHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, err := h.AuthService.AuthenticateForMFASetup(ctx, r.Header.Get("Authorization"))
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "A valid access or MFA token is required")
			return
		}
		log.Error("mfa setup authentication failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "An internal error occurred")
		return
	}

	var req TOTPActivateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return
	}

	if err := h.MFAService.ActivateTOTP(ctx, user.ID, req.Code); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidTOTPCode):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_code", "Invalid TOTP code")
		case errors.Is(err, service.ErrMFAAlreadyEnabled):
			httpx.WriteError(w, http.StatusBadRequest, "mfa_already_enabled", "MFA is already enabled for this user")
		case errors.Is(err, service.ErrMFANotEnrolled):
			httpx.WriteError(w, http.StatusBadRequest, "mfa_not_enrolled", "No pending TOTP enrollment; enroll first")
		default:
			log.Error("failed to activate TOTP", "user_id", user.ID, "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "An internal error occurred")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "MFA enabled",
	})
}

// HandleRemove handles DELETE /v1/mfa/totp. Unlike setup, removal requires a
// full access token plus a currently valid code.
func (h *MFAHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := ctx.Value(httpx.CtxKeyUserID).(string)
	if !ok || userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Missing or invalid access token")
		return
	}

	var req TOTPRemoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return
	}

	if err := h.MFAService.DisableMFA(ctx, userID, req.Code); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidTOTPCode):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_code", "Invalid TOTP code")
		case errors.Is(err, service.ErrMFANotEnabled):
			httpx.WriteError(w, http.StatusBadRequest, "mfa_not_enabled", "MFA is not enabled for this user")
		default:
			log.Error("failed to remove MFA", "user_id", userID, "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "An internal error occurred")
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "MFA removed successfully",
	})
}
