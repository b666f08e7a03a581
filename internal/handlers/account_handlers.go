package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/findmymua/fmm-backend/internal/apperrors"
	"github.com/findmymua/fmm-backend/internal/domain"
	"github.com/findmymua/fmm-backend/internal/http/response"
	"github.com/go-chi/chi/v5"
)

type sessionResponse struct {
	Success bool                `json:"success"`
	Token   string              `json:"token"`
	Account *domain.AccountInfo `json:"account"`
}

// Register handles registration for the given account kind
func (h *Handlers) Register(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, r, apperrors.Validation("Invalid JSON format"))
			return
		}

		account, token, err := h.accountService.Register(r.Context(), kind, &req)
		if err != nil {
			response.Error(w, r, err)
			return
		}

		h.setSessionCookie(w, token)
		response.WriteJSON(w, http.StatusCreated, sessionResponse{
			Success: true,
			Token:   token,
			Account: account.ToAccountInfo(),
		})
	}
}

// Login handles authentication for the given account kind
func (h *Handlers) Login(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, r, apperrors.Validation("Invalid JSON format"))
			return
		}

		account, token, err := h.accountService.Login(r.Context(), kind, &req)
		if err != nil {
			response.Error(w, r, err)
			return
		}

		h.setSessionCookie(w, token)
		response.WriteJSON(w, http.StatusOK, sessionResponse{
			Success: true,
			Token:   token,
			Account: account.ToAccountInfo(),
		})
	}
}

// Logout instructs the client to discard the session cookie
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearSessionCookie(w)
	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Logged Out",
	})
}

// ForgotPassword issues a reset token and dispatches the reset email
func (h *Handlers) ForgotPassword(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.ForgotPasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
			response.Error(w, r, apperrors.Validation("Email is required"))
			return
		}
		req.Normalize()

		sentTo, err := h.accountService.ForgotPassword(r.Context(), kind, req.Email, resetURLBase(r))
		if err != nil {
			response.Error(w, r, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": fmt.Sprintf("Email sent to %s successfully", sentTo),
		})
	}
}

// ResetPassword consumes a reset token and sets the new password
func (h *Handlers) ResetPassword(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.ResetPasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, r, apperrors.Validation("Invalid JSON format"))
			return
		}

		account, token, err := h.accountService.ResetPassword(r.Context(), kind, chi.URLParam(r, "token"), &req)
		if err != nil {
			response.Error(w, r, err)
			return
		}

		h.setSessionCookie(w, token)
		response.WriteJSON(w, http.StatusOK, sessionResponse{
			Success: true,
			Token:   token,
			Account: account.ToAccountInfo(),
		})
	}
}

// GetMe returns the authenticated account
func (h *Handlers) GetMe(w http.ResponseWriter, r *http.Request) {
	account := AccountFrom(r)

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"account": account.ToAccountInfo(),
	})
}

// UpdatePassword changes the password of the authenticated account
func (h *Handlers) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, apperrors.Validation("Invalid JSON format"))
		return
	}

	account := AccountFrom(r)
	token, err := h.accountService.UpdatePassword(r.Context(), account, &req)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	h.setSessionCookie(w, token)
	response.WriteJSON(w, http.StatusOK, sessionResponse{
		Success: true,
		Token:   token,
		Account: account.ToAccountInfo(),
	})
}

// UpdateProfile overwrites the whitelisted non-password fields
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, apperrors.Validation("Invalid JSON format"))
		return
	}

	account := AccountFrom(r)
	updated, err := h.accountService.UpdateProfile(r.Context(), account.ID, &req)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"account": updated.ToAccountInfo(),
	})
}

// Admin handlers

// ListAccounts handles listing all accounts (admin only)
func (h *Handlers) ListAccounts(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	accounts, err := h.accountService.ListAccounts(r.Context(), limit, offset)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	infos := make([]*domain.AccountInfo, len(accounts))
	for i := range accounts {
		infos[i] = accounts[i].ToAccountInfo()
	}

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"accounts": infos,
	})
}

// UpdateAccountRole handles role changes (admin only)
func (h *Handlers) UpdateAccountRole(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.Error(w, r, apperrors.Validation("Invalid account ID"))
		return
	}

	var req domain.UpdateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, apperrors.Validation("Invalid JSON format"))
		return
	}

	if err := h.accountService.UpdateRole(r.Context(), id, req.Role); err != nil {
		response.Error(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Role updated successfully",
	})
}

// resetURLBase rebuilds the public reset URL prefix from the incoming
// request, so the emailed link points at whatever host served the form.
func resetURLBase(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/api/v1/password/reset", scheme, r.Host)
}
