package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mmeshcher/procurement/internal/model"
	"github.com/mmeshcher/procurement/internal/repository"
	"github.com/mmeshcher/procurement/internal/validation"
)

var (
	supplierTargets = map[model.OrderStatus]bool{
		model.OrderStatusConfirmed: true,
		model.OrderStatusAssembled: true,
		model.OrderStatusSent:      true,
		model.OrderStatusDelivered: true,
	}
	buyerTargets = map[model.OrderStatus]bool{
		model.OrderStatusReceived: true,
		model.OrderStatusCanceled: true,
	}
)

// Checkout оформляет корзину пользователя, у которого уже есть контакт для доставки.
func (s *Service) Checkout(ctx context.Context, userID int64) ([]model.PromotedOrder, error) {
	ok, err := s.repo.HasContact(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: add a delivery contact before checkout", model.ErrValidation)
	}

	promoted, err := s.orders.PromoteBasket(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(promoted) == 0 {
		return nil, fmt.Errorf("%w: basket is empty", model.ErrValidation)
	}
	return promoted, nil
}

// ListOrders возвращает итоги заказов пользователя.
func (s *Service) ListOrders(ctx context.Context, userID int64) ([]model.OrderSummary, error) {
	return s.repo.ListOrders(ctx, userID)
}

// GetOrderDetail возвращает строки заказа пользователя.
func (s *Service) GetOrderDetail(ctx context.Context, userID int64, number string) ([]model.OrderLine, error) {
	if !validation.IsValidOrderNumber(number) {
		return nil, fmt.Errorf("%w: order %s", model.ErrNotFound, number)
	}
	lines, err := s.repo.GetOrderDetail(ctx, userID, number)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: order %s", model.ErrNotFound, number)
	}
	return lines, nil
}

// Thanks возвращает новые заказы пользователя за сегодня. Ничего не изменяет.
func (s *Service) Thanks(ctx context.Context, userID int64) ([]model.OrderLine, error) {
	return s.repo.ListTodayNewOrders(ctx, userID)
}

// SupplierOrders возвращает строки заказов на товары магазина поставщика по закупочной цене.
// Если number не пуст, возвращается только этот заказ.
func (s *Service) SupplierOrders(ctx context.Context, userID int64, number string) ([]model.OrderLine, error) {
	if _, err := s.requireSupplier(ctx, userID); err != nil {
		return nil, err
	}
	if number != "" && !validation.IsValidOrderNumber(number) {
		return nil, fmt.Errorf("%w: order %s", model.ErrNotFound, number)
	}

	lines, err := s.repo.ListSupplierOrderLines(ctx, userID, number)
	if err != nil {
		return nil, err
	}
	if number != "" && len(lines) == 0 {
		return nil, fmt.Errorf("%w: order %s", model.ErrNotFound, number)
	}
	return lines, nil
}

// UpdateOrderStatus меняет статус заказа по таблице переходов.
// Поставщик подтверждает, собирает, отправляет и доставляет строки своего магазина,
// покупатель отмечает получение или отменяет свой заказ.
func (s *Service) UpdateOrderStatus(ctx context.Context, userID int64, number string, target model.OrderStatus) error {
	if !validation.IsValidOrderNumber(number) {
		return fmt.Errorf("%w: order %s", model.ErrNotFound, number)
	}

	actor, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	var filter repository.OrderFilter
	switch actor.Type {
	case model.UserTypeSupplier:
		if !supplierTargets[target] {
			return fmt.Errorf("%w: supplier cannot set status %s", model.ErrPermission, target)
		}
		filter.SupplierID = userID
	default:
		if !buyerTargets[target] {
			return fmt.Errorf("%w: buyer cannot set status %s", model.ErrPermission, target)
		}
		filter.BuyerID = userID
	}

	buyerID, err := s.repo.TransitionOrder(ctx, number, filter, target)
	if err != nil {
		return err
	}

	s.logger.Info("order status changed",
		zap.String("order", number),
		zap.String("status", string(target)),
		zap.Int64("actorID", userID),
	)

	buyer := actor
	if buyerID != userID {
		if buyer, err = s.repo.GetUserByID(ctx, buyerID); err != nil {
			s.logger.Error("load buyer for notifications", zap.Error(err), zap.Int64("userID", buyerID))
			return nil
		}
	}
	s.enqueue(ctx, statusChangedNotification(buyer, number, target))
	return nil
}
