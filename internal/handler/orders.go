package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/procurement/internal/model"
)

type promotedOrderResponse struct {
	OrderNumber string `json:"order_number"`
	Date        string `json:"date"`
}

// Checkout оформляет корзину текущего пользователя.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	promoted, err := h.service.Checkout(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := make([]promotedOrderResponse, 0, len(promoted))
	for _, o := range promoted {
		resp = append(resp, promotedOrderResponse{OrderNumber: o.Number, Date: o.Date.Format(dateLayout)})
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListOrders возвращает итоги заказов текущего пользователя.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	orders, err := h.service.ListOrders(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(orders))
}

// GetOrder возвращает строки заказа текущего пользователя.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	lines, err := h.service.GetOrderDetail(r.Context(), userID, chi.URLParam(r, "orderNumber"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lines)
}

// Thanks возвращает заказы текущего пользователя, оформленные сегодня.
func (h *Handler) Thanks(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	lines, err := h.service.Thanks(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(lines))
}

// SupplierOrders возвращает заказы на товары магазина текущего поставщика.
func (h *Handler) SupplierOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	lines, err := h.service.SupplierOrders(r.Context(), userID, chi.URLParam(r, "orderNumber"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(lines))
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus меняет статус заказа от имени покупателя или поставщика.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	target, err := model.ParseOrderStatus(req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	number := chi.URLParam(r, "orderNumber")
	if err := h.service.UpdateOrderStatus(r.Context(), userID, number, target); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMessage(w, fmt.Sprintf("Order %s status changed to %s", number, target))
}
