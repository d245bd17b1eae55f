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

// BootstrapHandler provisions the first admin account of a fresh deployment.
type BootstrapHandler struct {
	BootstrapService *service.BootstrapService
}

func (h *BootstrapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	// 1. Validate the bootstrap token from the header. Unconfigured
	// deployments report 404 so the surface is invisible.
	err := h.BootstrapService.ValidateBootstrapToken(r.Header.Get("X-Bootstrap-Token"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBootstrapUnconfigured):
			httpx.WriteError(w, http.StatusNotFound, "not_found", "Bootstrap endpoint is not enabled")
		case errors.Is(err, service.ErrBootstrapUnauthorized):
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "Invalid bootstrap token")
		default:
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "An internal error occurred")
		}
		return
	}

	// 2. Parse and validate the request body
	var req BootstrapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return
	}
	if errs := req.Validate(); errs != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, map[string]any{
			"error":             "validation_error",
			"error_description": "validation failed for some fields",
			"details":           errs,
		})
		return
	}

	// 3. Create (or rediscover) the admin account
	user, err := h.BootstrapService.BootstrapUser(ctx,
		strings.TrimSpace(req.Email),
		strings.TrimSpace(req.Name),
		req.Password,
	)
	if err != nil {
		log.Error("bootstrap failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to create admin user")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusCreated, BootstrapResponse{
		AdminUserID: user.ID,
		Email:       user.Email,
	})
}
