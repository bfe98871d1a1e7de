package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/procurement/internal/model"
)

// OrderItem описывает строку заказа вместе с названием товара и его остатком на складе.
type OrderItem struct {
	model.Order
	ProductName     string
	QuantityInStock int64
}

// AddToBasket добавляет товар в корзину пользователя с количеством 1.
// Возвращает false, если строка для этого товара у пользователя уже есть в любом статусе.
func (r *PostgresRepository) AddToBasket(ctx context.Context, userID, productInfoID int64) (bool, string, error) {
	var name string
	err := r.pool.QueryRow(ctx,
		`SELECT name FROM product_infos WHERE id = $1`, productInfoID,
	).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, "", fmt.Errorf("%w: product info %d", model.ErrNotFound, productInfoID)
		}
		return false, "", fmt.Errorf("select product info: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`INSERT INTO orders (user_id, product_info_id, quantity, status)
		 VALUES ($1, $2, 1, $3)
		 ON CONFLICT (user_id, product_info_id) DO NOTHING`,
		userID, productInfoID, string(model.OrderStatusBasket),
	)
	if err != nil {
		return false, "", fmt.Errorf("insert basket row: %w", err)
	}

	return tag.RowsAffected() == 1, name, nil
}

// ListBasket возвращает строки корзины пользователя с ценой и суммой по каждой строке.
func (r *PostgresRepository) ListBasket(ctx context.Context, userID int64) ([]model.BasketItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT o.id, pi.name, COALESCE(s.name, ''), pi.retail_price, pi.quantity_in_stock,
		        o.quantity, pi.retail_price * o.quantity
		 FROM orders o
		 JOIN product_infos pi ON pi.id = o.product_info_id
		 LEFT JOIN shops s ON s.id = pi.shop_id
		 WHERE o.user_id = $1 AND o.status = $2
		 ORDER BY o.id`,
		userID, string(model.OrderStatusBasket),
	)
	if err != nil {
		return nil, fmt.Errorf("select basket: %w", err)
	}
	defer rows.Close()

	var items []model.BasketItem
	for rows.Next() {
		var it model.BasketItem
		if err := rows.Scan(&it.ID, &it.Name, &it.Shop, &it.Price, &it.QuantityInStock,
			&it.Quantity, &it.SumValue); err != nil {
			return nil, fmt.Errorf("scan basket row: %w", err)
		}
		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return items, nil
}

// GetOrderItem возвращает строку заказа пользователя с остатком товара.
func (r *PostgresRepository) GetOrderItem(ctx context.Context, userID, orderID int64) (*OrderItem, error) {
	var (
		it     OrderItem
		status string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT o.id, o.user_id, o.product_info_id, o.quantity, o.status, o.date, o.order_number,
		        pi.name, pi.quantity_in_stock
		 FROM orders o
		 JOIN product_infos pi ON pi.id = o.product_info_id
		 WHERE o.id = $1 AND o.user_id = $2`,
		orderID, userID,
	).Scan(&it.ID, &it.UserID, &it.ProductInfoID, &it.Quantity, &status, &it.Date, &it.OrderNumber,
		&it.ProductName, &it.QuantityInStock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: order %d", model.ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("get order item: %w", err)
	}
	it.Status = model.OrderStatus(status)
	return &it, nil
}

// UpdateOrderQuantity сохраняет новое количество товара в строке заказа пользователя.
func (r *PostgresRepository) UpdateOrderQuantity(ctx context.Context, userID, orderID, quantity int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET quantity = $3 WHERE id = $1 AND user_id = $2`,
		orderID, userID, quantity,
	)
	if err != nil {
		return fmt.Errorf("update quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: order %d", model.ErrNotFound, orderID)
	}
	return nil
}

// DeleteOrderItem удаляет строку заказа пользователя и возвращает название товара.
func (r *PostgresRepository) DeleteOrderItem(ctx context.Context, userID, orderID int64) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx,
		`DELETE FROM orders o USING product_infos pi
		 WHERE o.id = $1 AND o.user_id = $2 AND pi.id = o.product_info_id
		 RETURNING pi.name`,
		orderID, userID,
	).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("%w: order %d", model.ErrNotFound, orderID)
		}
		return "", fmt.Errorf("delete order item: %w", err)
	}
	return name, nil
}
