package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	custommiddleware "github.com/mmeshcher/procurement/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса закупок.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(custommiddleware.Metrics)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.rateLimiter.Middleware)

			r.Post("/user/register", h.Register)
			r.Post("/user/login", h.Login)

			r.Get("/shop", h.ListShops)
			r.Get("/shop/{id}", h.GetShop)
			r.Get("/categories", h.ListCategories)
			r.Get("/products", h.ListProducts)
			r.Get("/product-info/{id}", h.GetProductInfo)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)
			r.Use(h.rateLimiter.Middleware)

			r.Put("/shop/{id}", h.UpdateShop)
			r.Put("/shop-assign", h.AssignShops)

			r.Post("/product-info", h.CreateProductInfo)
			r.Put("/product-info/{id}", h.UpdateProductInfo)
			r.Delete("/product-info/{id}", h.DeleteProductInfo)

			r.Get("/basket", h.ListBasket)
			r.Put("/basket/{id}", h.UpdateBasketItem)
			r.Delete("/basket/{id}", h.DeleteBasketItem)

			r.Get("/contact", h.ListContacts)
			r.Post("/contact", h.CreateContact)
			r.Put("/contact/{id}", h.UpdateContact)
			r.Delete("/contact/{id}", h.DeleteContact)

			r.Get("/thanks", h.Thanks)

			r.Get("/orders", h.ListOrders)
			r.Post("/orders/checkout", h.Checkout)
			r.Get("/orders/{orderNumber}", h.GetOrder)
			r.Put("/orders/{orderNumber}/status", h.UpdateOrderStatus)

			r.Get("/supplier-orders", h.SupplierOrders)
			r.Get("/supplier-orders/{orderNumber}", h.SupplierOrders)
			r.Put("/supplier-orders/{orderNumber}/status", h.UpdateOrderStatus)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeErrorText(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeErrorText(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})

	return r
}
