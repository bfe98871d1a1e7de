package service

import (
	"context"
	"fmt"

	"github.com/mmeshcher/procurement/internal/model"
)

// AddToBasket добавляет товар в корзину пользователя.
// Если товар уже есть у пользователя в любом статусе, возвращается *model.ConflictError.
func (s *Service) AddToBasket(ctx context.Context, userID, productInfoID int64) (string, error) {
	inserted, name, err := s.repo.AddToBasket(ctx, userID, productInfoID)
	if err != nil {
		return "", err
	}
	if !inserted {
		return "", &model.ConflictError{
			Message: fmt.Sprintf("%s is already in the basket of user %d", name, userID),
		}
	}
	return fmt.Sprintf("%s added to the basket of user %d", name, userID), nil
}

// ListBasket возвращает корзину пользователя.
func (s *Service) ListBasket(ctx context.Context, userID int64) ([]model.BasketItem, error) {
	return s.repo.ListBasket(ctx, userID)
}

// UpdateQuantity изменяет количество товара в корзине.
// Остаток проверяется без блокировки: одновременные изменения могут превысить склад.
func (s *Service) UpdateQuantity(ctx context.Context, userID, orderID, quantity int64) (string, error) {
	if quantity < 1 {
		return "", fmt.Errorf("%w: quantity must be at least 1", model.ErrValidation)
	}

	item, err := s.repo.GetOrderItem(ctx, userID, orderID)
	if err != nil {
		return "", err
	}
	if item.Status != model.OrderStatusBasket {
		return "", fmt.Errorf("%w: quantity of a placed order cannot be changed", model.ErrValidation)
	}
	if quantity > item.QuantityInStock {
		return "", fmt.Errorf("%w: quantity %d exceeds the stock of %q (%d)",
			model.ErrValidation, quantity, item.ProductName, item.QuantityInStock)
	}

	if err := s.repo.UpdateOrderQuantity(ctx, userID, orderID, quantity); err != nil {
		return "", err
	}
	return fmt.Sprintf("Quantity of %q changed to %d pcs.", item.ProductName, quantity), nil
}

// RemoveFromBasket удаляет строку заказа пользователя независимо от статуса.
func (s *Service) RemoveFromBasket(ctx context.Context, userID, orderID int64) (string, error) {
	name, err := s.repo.DeleteOrderItem(ctx, userID, orderID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s removed from the basket", name), nil
}
