package model

import "fmt"

// OrderStatus описывает статус строки заказа.
type OrderStatus string

const (
	OrderStatusBasket    OrderStatus = "basket"
	OrderStatusNew       OrderStatus = "new"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusAssembled OrderStatus = "assembled"
	OrderStatusSent      OrderStatus = "sent"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusReceived  OrderStatus = "received"
	OrderStatusCanceled  OrderStatus = "canceled"
)

// Строка корзины ещё не заказ: её не отменяют, а удаляют из корзины.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusBasket:    {OrderStatusNew},
	OrderStatusNew:       {OrderStatusConfirmed, OrderStatusCanceled},
	OrderStatusConfirmed: {OrderStatusAssembled, OrderStatusCanceled},
	OrderStatusAssembled: {OrderStatusSent, OrderStatusCanceled},
	OrderStatusSent:      {OrderStatusDelivered, OrderStatusReceived, OrderStatusCanceled},
}

// ActiveStatuses перечисляет статусы оформленного, но ещё не завершённого заказа.
var ActiveStatuses = []OrderStatus{
	OrderStatusNew,
	OrderStatusConfirmed,
	OrderStatusAssembled,
	OrderStatusSent,
}

// ParseOrderStatus преобразует строку в статус заказа.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(s); st {
	case OrderStatusBasket, OrderStatusNew, OrderStatusConfirmed, OrderStatusAssembled,
		OrderStatusSent, OrderStatusDelivered, OrderStatusReceived, OrderStatusCanceled:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown order status %q", ErrValidation, s)
}

// CanTransition сообщает, разрешён ли переход из статуса s в статус to.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Terminal сообщает, что из статуса нет переходов.
func (s OrderStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

// Title возвращает название статуса для уведомлений.
func (s OrderStatus) Title() string {
	switch s {
	case OrderStatusBasket:
		return "Basket"
	case OrderStatusNew:
		return "New"
	case OrderStatusConfirmed:
		return "Confirmed"
	case OrderStatusAssembled:
		return "Assembled"
	case OrderStatusSent:
		return "Sent"
	case OrderStatusDelivered:
		return "Delivered"
	case OrderStatusReceived:
		return "Received"
	case OrderStatusCanceled:
		return "Canceled"
	}
	return string(s)
}
