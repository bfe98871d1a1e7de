package handler

import (
	"net/http"
)

// ListBasket возвращает корзину текущего пользователя.
func (h *Handler) ListBasket(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	items, err := h.service.ListBasket(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

type quantityRequest struct {
	Quantity *int64 `json:"quantity"`
}

// UpdateBasketItem изменяет количество товара в корзине.
func (h *Handler) UpdateBasketItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req quantityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Quantity == nil {
		writeErrorText(w, http.StatusBadRequest, "quantity is required")
		return
	}

	msg, err := h.service.UpdateQuantity(r.Context(), userID, id, *req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMessage(w, msg)
}

// DeleteBasketItem удаляет строку заказа текущего пользователя.
func (h *Handler) DeleteBasketItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	msg, err := h.service.RemoveFromBasket(r.Context(), userID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMessage(w, msg)
}
