package handler

import (
	"net/http"

	"github.com/mmeshcher/procurement/internal/model"
	"github.com/mmeshcher/procurement/internal/service"
)

// ListShops возвращает список магазинов.
func (h *Handler) ListShops(w http.ResponseWriter, r *http.Request) {
	shops, err := h.service.ListShops(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(shops))
}

// GetShop возвращает магазин по идентификатору.
func (h *Handler) GetShop(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	shop, err := h.service.GetShop(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shop)
}

type shopRequest struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	IsActive *bool  `json:"is_active"`
}

// UpdateShop изменяет магазин текущего поставщика.
func (h *Handler) UpdateShop(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req shopRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	shop := model.Shop{ID: id, Name: req.Name, URL: req.URL, IsActive: true}
	if req.IsActive != nil {
		shop.IsActive = *req.IsActive
	}

	updated, err := h.service.UpdateShop(r.Context(), userID, shop)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// AssignShops прикрепляет поставщиков к магазинам их компаний.
func (h *Handler) AssignShops(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	assigned, err := h.service.AssignShops(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, assigned)
}

// ListCategories возвращает список категорий.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(categories))
}

// ListProducts ищет товары по параметрам search и ordering.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products, err := h.service.ListProducts(r.Context(), q.Get("search"), q.Get("ordering"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(products))
}

// GetProductInfo возвращает предложение по товару с характеристиками.
func (h *Handler) GetProductInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	pi, err := h.service.GetProductInfo(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pi)
}

type productInfoRequest struct {
	Name        string `json:"name"`
	ProductID   int64  `json:"product_id"`
	Quantity    int64  `json:"quantity"`
	Price       int64  `json:"price"`
	RetailPrice int64  `json:"retail_price"`
}

// CreateProductInfo добавляет предложение в магазин текущего поставщика.
func (h *Handler) CreateProductInfo(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req productInfoRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pi, err := h.service.CreateProductInfo(r.Context(), userID, model.ProductInfo{
		Name:            req.Name,
		ProductID:       req.ProductID,
		QuantityInStock: req.Quantity,
		Price:           req.Price,
		RetailPrice:     req.RetailPrice,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, pi)
}

type productInfoUpdateRequest struct {
	Quantity    *int64 `json:"quantity"`
	RetailPrice *int64 `json:"retail_price"`
	Basket      bool   `json:"basket"`
}

// UpdateProductInfo кладёт товар в корзину при basket: true,
// иначе изменяет остаток и розничную цену предложения поставщика.
func (h *Handler) UpdateProductInfo(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req productInfoUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Basket {
		msg, err := h.service.AddToBasket(r.Context(), userID, id)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeMessage(w, msg)
		return
	}

	pi, err := h.service.UpdateProductStock(r.Context(), userID, id, service.StockUpdate{
		Quantity:    req.Quantity,
		RetailPrice: req.RetailPrice,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pi)
}

// DeleteProductInfo удаляет предложение текущего поставщика.
func (h *Handler) DeleteProductInfo(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteProductInfo(r.Context(), userID, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
