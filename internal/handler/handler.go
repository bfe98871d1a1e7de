// Package handler содержит HTTP-обработчики API сервиса закупок.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/procurement/internal/middleware"
	"github.com/mmeshcher/procurement/internal/model"
	"github.com/mmeshcher/procurement/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, reg service.Registration) (int64, error)
	AuthenticateUser(ctx context.Context, email, password string) (int64, error)

	ListShops(ctx context.Context) ([]model.Shop, error)
	GetShop(ctx context.Context, id int64) (*model.Shop, error)
	UpdateShop(ctx context.Context, userID int64, shop model.Shop) (*model.Shop, error)
	AssignShops(ctx context.Context, userID int64) (map[string]string, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	ListProducts(ctx context.Context, search, ordering string) ([]model.Product, error)
	GetProductInfo(ctx context.Context, id int64) (*model.ProductInfo, error)
	CreateProductInfo(ctx context.Context, userID int64, pi model.ProductInfo) (*model.ProductInfo, error)
	UpdateProductStock(ctx context.Context, userID, id int64, upd service.StockUpdate) (*model.ProductInfo, error)
	DeleteProductInfo(ctx context.Context, userID, id int64) error

	AddToBasket(ctx context.Context, userID, productInfoID int64) (string, error)
	ListBasket(ctx context.Context, userID int64) ([]model.BasketItem, error)
	UpdateQuantity(ctx context.Context, userID, orderID, quantity int64) (string, error)
	RemoveFromBasket(ctx context.Context, userID, orderID int64) (string, error)

	Checkout(ctx context.Context, userID int64) ([]model.PromotedOrder, error)
	ListOrders(ctx context.Context, userID int64) ([]model.OrderSummary, error)
	GetOrderDetail(ctx context.Context, userID int64, number string) ([]model.OrderLine, error)
	Thanks(ctx context.Context, userID int64) ([]model.OrderLine, error)
	SupplierOrders(ctx context.Context, userID int64, number string) ([]model.OrderLine, error)
	UpdateOrderStatus(ctx context.Context, userID int64, number string, target model.OrderStatus) error

	ListContacts(ctx context.Context, userID int64) ([]model.Contact, error)
	CreateContact(ctx context.Context, c model.Contact) (*model.Contact, error)
	UpdateContact(ctx context.Context, c model.Contact) (*model.Contact, error)
	DeleteContact(ctx context.Context, userID, id int64) (string, error)
}

// Handler реализует HTTP-обработчики API сервиса закупок.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	rateLimiter    *middleware.RateLimiter
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов. limiter может быть nil.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, limiter *middleware.RateLimiter) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		rateLimiter:    limiter,
	}
}

type errorResponse struct {
	Error string `json:"Error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

func writeErrorText(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError отображает доменную ошибку в HTTP-ответ.
// Повторное действие (ErrConflict) не считается ошибкой и возвращается как сообщение.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var conflict *model.ConflictError
	switch {
	case errors.As(err, &conflict):
		writeMessage(w, conflict.Message)
	case errors.Is(err, model.ErrNotFound):
		writeErrorText(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrValidation):
		writeErrorText(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, model.ErrPermission):
		writeErrorText(w, http.StatusForbidden, err.Error())
	case errors.Is(err, model.ErrUserExists):
		writeErrorText(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrInvalidCredentials):
		writeErrorText(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, context.Canceled):
		h.logger.Info("request canceled", zap.String("uri", r.RequestURI))
	default:
		userID, _ := middleware.GetUserIDFromContext(r.Context())
		h.logger.Error("request failed",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("uri", r.RequestURI),
			zap.Int64("userID", userID),
		)
		writeErrorText(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErrorText(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeErrorText(w, http.StatusBadRequest, "malformed "+name)
		return 0, false
	}
	return id, true
}

func currentUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeErrorText(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}
	return userID, ok
}

// nonNil возвращает пустой срез вместо nil, чтобы в JSON был [] а не null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Position  string `json:"position"`
	Type      string `json:"type"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Email == "" || req.Password == "" {
		writeErrorText(w, http.StatusBadRequest, "email and password are required")
		return
	}

	userID, err := h.service.RegisterUser(r.Context(), service.Registration{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Company:   req.Company,
		Position:  req.Position,
		Type:      model.UserType(req.Type),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID)
	writeJSON(w, http.StatusOK, map[string]int64{"id": userID})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login выполняет аутентификацию пользователя и устанавливает cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Email == "" || req.Password == "" {
		writeErrorText(w, http.StatusBadRequest, "email and password are required")
		return
	}

	userID, err := h.service.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID)
	w.WriteHeader(http.StatusOK)
}

const dateLayout = time.DateOnly
