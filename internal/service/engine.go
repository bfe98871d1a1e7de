package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mmeshcher/procurement/internal/model"
	"github.com/mmeshcher/procurement/internal/notify"
)

// OrderEngine переводит корзину в заказы и отменяет заказы по событиям о контактах.
// Смена статусов выполняется одной транзакцией в хранилище, уведомления ставятся
// в очередь после её фиксации и не влияют на результат.
type OrderEngine struct {
	store    OrderStore
	notifier Notifier
	logger   *zap.Logger
}

// NewOrderEngine создаёт движок заказов.
func NewOrderEngine(store OrderStore, notifier Notifier, logger *zap.Logger) *OrderEngine {
	return &OrderEngine{store: store, notifier: notifier, logger: logger}
}

// PromoteBasket оформляет корзину пользователя и возвращает номера новых заказов.
func (e *OrderEngine) PromoteBasket(ctx context.Context, userID int64) ([]model.PromotedOrder, error) {
	promoted, err := e.store.PromoteBasket(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("promote basket: %w", err)
	}
	if len(promoted) == 0 {
		return nil, nil
	}

	e.logger.Info("basket promoted", zap.Int64("userID", userID), zap.Int("orders", len(promoted)))
	e.notifyAll(ctx, userID, promoted, newOrderNotifications)
	return promoted, nil
}

// CancelActiveOrders отменяет незавершённые заказы пользователя.
// Отсутствие таких заказов не является ошибкой.
func (e *OrderEngine) CancelActiveOrders(ctx context.Context, userID int64) ([]model.PromotedOrder, error) {
	canceled, err := e.store.CancelActiveOrders(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("cancel orders: %w", err)
	}
	if len(canceled) == 0 {
		return nil, nil
	}

	e.logger.Info("orders canceled", zap.Int64("userID", userID), zap.Int("orders", len(canceled)))
	e.notifyAll(ctx, userID, canceled, canceledOrderNotifications)
	return canceled, nil
}

// OnContactCreated оформляет корзину: у пользователя появился адрес доставки.
func (e *OrderEngine) OnContactCreated(ctx context.Context, ev ContactCreated) error {
	_, err := e.PromoteBasket(ctx, ev.UserID)
	return err
}

// OnContactRemoved отменяет заказы: без адреса доставки их нельзя выполнить.
func (e *OrderEngine) OnContactRemoved(ctx context.Context, ev ContactRemoved) error {
	_, err := e.CancelActiveOrders(ctx, ev.UserID)
	return err
}

func (e *OrderEngine) notifyAll(ctx context.Context, userID int64, orders []model.PromotedOrder,
	build func(buyer *model.User, o model.PromotedOrder) []notify.Notification) {
	buyer, err := e.store.GetUserByID(ctx, userID)
	if err != nil {
		e.logger.Error("load buyer for notifications", zap.Error(err), zap.Int64("userID", userID))
		return
	}

	var ns []notify.Notification
	for _, o := range orders {
		ns = append(ns, build(buyer, o)...)
	}
	enqueue(ctx, e.notifier, e.logger, ns...)
}

var _ ContactEventHandler = (*OrderEngine)(nil)
