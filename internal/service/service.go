// Package service реализует бизнес-логику сервиса закупок.
package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/mmeshcher/procurement/internal/model"
	"github.com/mmeshcher/procurement/internal/notify"
	"github.com/mmeshcher/procurement/internal/repository"
)

// OrderStore описывает операции хранилища, нужные движку заказов.
type OrderStore interface {
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	PromoteBasket(ctx context.Context, userID int64) ([]model.PromotedOrder, error)
	CancelActiveOrders(ctx context.Context, userID int64) ([]model.PromotedOrder, error)
}

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	OrderStore

	Close() error

	CreateUser(ctx context.Context, u model.User) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	ListShops(ctx context.Context) ([]model.Shop, error)
	GetShop(ctx context.Context, id int64) (*model.Shop, error)
	UpdateShop(ctx context.Context, ownerID int64, s model.Shop) (*model.Shop, error)
	AssignShops(ctx context.Context) (map[string]string, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	ListProducts(ctx context.Context, search string, descending bool) ([]model.Product, error)
	GetProductInfo(ctx context.Context, id int64) (*model.ProductInfo, error)
	CreateProductInfo(ctx context.Context, ownerID int64, pi model.ProductInfo) (int64, error)
	UpdateProductStock(ctx context.Context, ownerID, id, quantity, retailPrice int64) error
	DeleteProductInfo(ctx context.Context, ownerID, id int64) error

	AddToBasket(ctx context.Context, userID, productInfoID int64) (bool, string, error)
	ListBasket(ctx context.Context, userID int64) ([]model.BasketItem, error)
	GetOrderItem(ctx context.Context, userID, orderID int64) (*repository.OrderItem, error)
	UpdateOrderQuantity(ctx context.Context, userID, orderID, quantity int64) error
	DeleteOrderItem(ctx context.Context, userID, orderID int64) (string, error)

	TransitionOrder(ctx context.Context, number string, f repository.OrderFilter, target model.OrderStatus) (int64, error)
	ListOrders(ctx context.Context, userID int64) ([]model.OrderSummary, error)
	GetOrderDetail(ctx context.Context, userID int64, number string) ([]model.OrderLine, error)
	ListTodayNewOrders(ctx context.Context, userID int64) ([]model.OrderLine, error)
	ListSupplierOrderLines(ctx context.Context, supplierID int64, number string) ([]model.OrderLine, error)

	ListContacts(ctx context.Context, userID int64) ([]model.Contact, error)
	GetContact(ctx context.Context, userID, id int64) (*model.Contact, error)
	HasContact(ctx context.Context, userID int64) (bool, error)
	CreateContact(ctx context.Context, c model.Contact) (int64, error)
	UpdateContact(ctx context.Context, c model.Contact) error
	DeleteContact(ctx context.Context, userID, id int64) error
}

// Notifier ставит уведомления в очередь на отправку.
type Notifier interface {
	EnqueueNotifications(ctx context.Context, ns ...notify.Notification) error
}

// Service содержит бизнес-логику сервиса закупок.
type Service struct {
	repo     Repository
	notifier Notifier
	logger   *zap.Logger
	orders   *OrderEngine
	contacts ContactEventHandler
}

// Option настраивает Service.
type Option func(*Service)

// WithContactEvents подменяет получателя событий о контактах.
func WithContactEvents(h ContactEventHandler) Option {
	return func(s *Service) { s.contacts = h }
}

// NewService создаёт новый сервис. По умолчанию события о контактах обрабатывает движок заказов.
func NewService(repo Repository, notifier Notifier, logger *zap.Logger, opts ...Option) *Service {
	engine := NewOrderEngine(repo, notifier, logger)
	s := &Service{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		orders:   engine,
		contacts: engine,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

func (s *Service) enqueue(ctx context.Context, ns ...notify.Notification) {
	enqueue(ctx, s.notifier, s.logger, ns...)
}

func enqueue(ctx context.Context, n Notifier, logger *zap.Logger, ns ...notify.Notification) {
	if len(ns) == 0 || n == nil {
		return
	}
	if err := n.EnqueueNotifications(ctx, ns...); err != nil {
		logger.Error("enqueue notifications", zap.Error(err), zap.Int("count", len(ns)))
	}
}
