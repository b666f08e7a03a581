package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/findmymua/fmm-backend/internal/apperrors"
	"github.com/findmymua/fmm-backend/internal/domain"
	"github.com/findmymua/fmm-backend/internal/http/response"
)

// CreateOrder records a pending order for the authenticated account
func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, apperrors.Validation("Invalid JSON format"))
		return
	}

	account := AccountFrom(r)
	order, err := h.orderService.CreateOrder(r.Context(), account.ID, &req)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"order":   order,
	})
}
