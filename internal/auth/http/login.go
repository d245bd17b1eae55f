package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/staffdeskhq/staffdesk/internal/auth/service"
	"github.com/staffdeskhq/staffdesk/pkg/httpx"
	"github.com/staffdeskhq/staffdesk/pkg/slogx"
)

// LoginHandler serves the password and TOTP steps of the login flow.
type LoginHandler struct {
	AuthService *service.AuthService
}

// HandleLogin handles POST /v1/auth/login.
func (h *LoginHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	// 1. Parse and validate the request body
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return
	}
	if errs := req.Validate(); errs != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	// 2. Verify the credentials
	result, err := h.AuthService.Login(ctx, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
		case errors.Is(err, service.ErrAccountLocked):
			httpx.WriteError(w, http.StatusForbidden, "account_locked", "Account is temporarily locked due to failed login attempts")
		default:
			log.Error("login failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "An internal error occurred")
		}
		return
	}

	// 3. MFA-enabled accounts get the intermediate token instead of a pair
	httpx.NoCache(w)
	if result.MFARequired {
		httpx.WriteJSON(w, http.StatusOK, LoginResponse{
			MFARequired: true,
			MFAToken:    result.MFAToken,
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, LoginResponse{
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		TokenType:    result.Tokens.TokenType,
		ExpiresIn:    result.Tokens.ExpiresIn,
	})
}

// HandleMFALogin handles POST /v1/auth/mfa. It exchanges the intermediate
// MFA token plus a TOTP code for the full token pair.
func (h *LoginHandler) HandleMFALogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	// 1. Parse the request body
	var req MFALoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return
	}
	if req.MFAToken == "" || req.Code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "mfa_token and code are required")
		return
	}

	// 2. Verify the intermediate token and the TOTP code
	pair, err := h.AuthService.CompleteMFALogin(ctx, req.MFAToken, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTokenInvalid):
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "MFA token is invalid or expired")
		case errors.Is(err, service.ErrInvalidTOTPCode):
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_code", "Invalid TOTP code")
		case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrMFANotEnabled):
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "MFA token is invalid or expired")
		default:
			log.Error("mfa login failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "An internal error occurred")
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn,
	})
}
