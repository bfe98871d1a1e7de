package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/procurement/internal/model"
)

// OrderFilter ограничивает строки заказа покупателем и/или владельцем магазина.
// Нулевое значение поля означает отсутствие ограничения.
type OrderFilter struct {
	BuyerID    int64
	SupplierID int64
}

// PromoteBasket переводит всю корзину пользователя в статус new и нумерует новые заказы.
//
// Строки группируются по дате создания; каждая группа без номера получает номер
// "{userID}-{seq}", где seq продолжает наибольший номер, уже выданный пользователю.
// Строка пользователя блокируется на время транзакции, поэтому параллельные вызовы
// для одного пользователя выполняются по очереди.
func (r *PostgresRepository) PromoteBasket(ctx context.Context, userID int64) ([]model.PromotedOrder, error) {
	var promoted []model.PromotedOrder

	err := r.withRetry(ctx, func() error {
		promoted = nil
		return r.inTx(ctx, func(tx pgx.Tx) error {
			if err := lockUser(ctx, tx, userID); err != nil {
				return err
			}

			if _, err := tx.Exec(ctx,
				`UPDATE orders SET status = $2 WHERE user_id = $1 AND status = $3`,
				userID, string(model.OrderStatusNew), string(model.OrderStatusBasket),
			); err != nil {
				return fmt.Errorf("promote basket: %w", err)
			}

			dates, err := unnumberedDates(ctx, tx, userID)
			if err != nil {
				return err
			}
			if len(dates) == 0 {
				return nil
			}

			var last int64
			if err := tx.QueryRow(ctx,
				`SELECT COALESCE(MAX(split_part(order_number, '-', 2)::bigint), 0)
				 FROM orders
				 WHERE user_id = $1 AND order_number <> ''`,
				userID,
			).Scan(&last); err != nil {
				return fmt.Errorf("select last order sequence: %w", err)
			}

			for i, date := range dates {
				number := FormatOrderNumber(userID, last+int64(i)+1)

				if _, err := tx.Exec(ctx,
					`UPDATE orders SET order_number = $4
					 WHERE user_id = $1 AND status = $2 AND order_number = '' AND date = $3`,
					userID, string(model.OrderStatusNew), date, number,
				); err != nil {
					return fmt.Errorf("assign order number: %w", err)
				}

				emails, err := supplierEmails(ctx, tx, userID, number)
				if err != nil {
					return err
				}
				promoted = append(promoted, model.PromotedOrder{
					Number:         number,
					Date:           date,
					SupplierEmails: emails,
				})
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return promoted, nil
}

// CancelActiveOrders отменяет все оформленные и незавершённые строки заказов пользователя.
// Возвращает затронутые заказы; повторный вызов ничего не меняет.
func (r *PostgresRepository) CancelActiveOrders(ctx context.Context, userID int64) ([]model.PromotedOrder, error) {
	var canceled []model.PromotedOrder

	err := r.withRetry(ctx, func() error {
		canceled = nil
		return r.inTx(ctx, func(tx pgx.Tx) error {
			rows, err := tx.Query(ctx,
				`UPDATE orders SET status = $2
				 WHERE user_id = $1 AND status = ANY($3)
				 RETURNING order_number, date`,
				userID, string(model.OrderStatusCanceled), statusStrings(model.ActiveStatuses),
			)
			if err != nil {
				return fmt.Errorf("cancel orders: %w", err)
			}

			seen := make(map[string]bool)
			for rows.Next() {
				var (
					number string
					date   time.Time
				)
				if err := rows.Scan(&number, &date); err != nil {
					rows.Close()
					return fmt.Errorf("scan canceled order: %w", err)
				}
				if seen[number] {
					continue
				}
				seen[number] = true
				canceled = append(canceled, model.PromotedOrder{Number: number, Date: date})
			}
			rows.Close()
			if err := rows.Err(); err != nil {
				return fmt.Errorf("rows error: %w", err)
			}

			for i := range canceled {
				emails, err := supplierEmails(ctx, tx, userID, canceled[i].Number)
				if err != nil {
					return err
				}
				canceled[i].SupplierEmails = emails
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return canceled, nil
}

// TransitionOrder переводит строки заказа number, попадающие под фильтр, в статус target.
// Если хотя бы одна строка не может перейти в target, ничего не меняется.
// Возвращает идентификатор покупателя.
func (r *PostgresRepository) TransitionOrder(ctx context.Context, number string, f OrderFilter, target model.OrderStatus) (int64, error) {
	var buyerID int64

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT o.id, o.status, o.user_id
			 FROM orders o
			 JOIN product_infos pi ON pi.id = o.product_info_id
			 LEFT JOIN shops s ON s.id = pi.shop_id
			 WHERE o.order_number = $1
			   AND ($2::bigint = 0 OR o.user_id = $2)
			   AND ($3::bigint = 0 OR s.user_id = $3)
			 FOR UPDATE OF o`,
			number, f.BuyerID, f.SupplierID,
		)
		if err != nil {
			return fmt.Errorf("select order rows: %w", err)
		}

		var ids []int64
		for rows.Next() {
			var (
				id     int64
				status string
			)
			if err := rows.Scan(&id, &status, &buyerID); err != nil {
				rows.Close()
				return fmt.Errorf("scan order row: %w", err)
			}
			if from := model.OrderStatus(status); !from.CanTransition(target) {
				rows.Close()
				return fmt.Errorf("%w: order %s cannot change status from %s to %s",
					model.ErrValidation, number, from, target)
			}
			ids = append(ids, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}

		if len(ids) == 0 {
			return fmt.Errorf("%w: order %s", model.ErrNotFound, number)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE orders SET status = $1 WHERE id = ANY($2)`,
			string(target), ids,
		); err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return buyerID, nil
}

// ListOrders возвращает итоги заказов пользователя, сгруппированные по дате, номеру и статусу.
func (r *PostgresRepository) ListOrders(ctx context.Context, userID int64) ([]model.OrderSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT o.order_number, o.user_id, o.date, o.status, SUM(pi.retail_price * o.quantity)
		 FROM orders o
		 JOIN product_infos pi ON pi.id = o.product_info_id
		 WHERE o.user_id = $1 AND o.status <> $2
		 GROUP BY o.date, o.order_number, o.status, o.user_id
		 ORDER BY o.date DESC, o.order_number`,
		userID, string(model.OrderStatusBasket),
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var res []model.OrderSummary
	for rows.Next() {
		var (
			s      model.OrderSummary
			status string
		)
		if err := rows.Scan(&s.OrderNumber, &s.UserID, &s.Date, &status, &s.Sum); err != nil {
			return nil, fmt.Errorf("scan order summary: %w", err)
		}
		s.Status = model.OrderStatus(status)
		res = append(res, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// GetOrderDetail возвращает строки заказа пользователя по розничной цене вместе с контактами.
func (r *PostgresRepository) GetOrderDetail(ctx context.Context, userID int64, number string) ([]model.OrderLine, error) {
	return r.queryOrderLines(ctx, "pi.retail_price",
		`o.user_id = $1 AND o.order_number = $2`, userID, number)
}

// ListTodayNewOrders возвращает строки новых заказов пользователя за текущий день.
// День определяется часовым поясом сессии БД, как и значение orders.date по умолчанию.
func (r *PostgresRepository) ListTodayNewOrders(ctx context.Context, userID int64) ([]model.OrderLine, error) {
	return r.queryOrderLines(ctx, "pi.retail_price",
		`o.user_id = $1 AND o.status = $2 AND o.date = CURRENT_DATE`,
		userID, string(model.OrderStatusNew))
}

// ListSupplierOrderLines возвращает строки заказов на товары магазина поставщика по закупочной цене.
// Если number не пуст, выбираются только строки этого заказа.
func (r *PostgresRepository) ListSupplierOrderLines(ctx context.Context, supplierID int64, number string) ([]model.OrderLine, error) {
	return r.queryOrderLines(ctx, "pi.price",
		`s.user_id = $1 AND o.status <> $2 AND ($3 = '' OR o.order_number = $3)`,
		supplierID, string(model.OrderStatusBasket), number)
}

// queryOrderLines выполняет выборку строк заказов. priceColumn и where задаются
// только константами пакета.
func (r *PostgresRepository) queryOrderLines(ctx context.Context, priceColumn, where string, args ...any) ([]model.OrderLine, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT o.id, o.order_number, o.date, o.status, pi.name, COALESCE(s.name, ''),
		        `+priceColumn+`, o.quantity, `+priceColumn+` * o.quantity,
		        u.first_name || ' ' || u.last_name, u.email,
		        COALESCE(c.phone, ''), COALESCE(c.street, ''), COALESCE(c.house, '')
		 FROM orders o
		 JOIN product_infos pi ON pi.id = o.product_info_id
		 LEFT JOIN shops s ON s.id = pi.shop_id
		 JOIN users u ON u.id = o.user_id
		 LEFT JOIN contacts c ON c.user_id = o.user_id
		 WHERE `+where+`
		 ORDER BY o.date DESC, o.order_number, o.id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("select order lines: %w", err)
	}
	defer rows.Close()

	var res []model.OrderLine
	for rows.Next() {
		var (
			l      model.OrderLine
			status string
		)
		if err := rows.Scan(&l.ID, &l.OrderNumber, &l.Date, &status, &l.Name, &l.Shop,
			&l.Price, &l.Quantity, &l.Sum, &l.User, &l.Email, &l.Phone, &l.Street, &l.House); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		l.Status = model.OrderStatus(status)
		res = append(res, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// FormatOrderNumber собирает номер заказа "{userID}-{seq}".
func FormatOrderNumber(userID, seq int64) string {
	return strconv.FormatInt(userID, 10) + "-" + strconv.FormatInt(seq, 10)
}

func lockUser(ctx context.Context, tx pgx.Tx, userID int64) error {
	var dummy int
	err := tx.QueryRow(ctx, `SELECT 1 FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&dummy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: user %d", model.ErrNotFound, userID)
		}
		return fmt.Errorf("lock user for update: %w", err)
	}
	return nil
}

func unnumberedDates(ctx context.Context, tx pgx.Tx, userID int64) ([]time.Time, error) {
	rows, err := tx.Query(ctx,
		`SELECT DISTINCT date FROM orders
		 WHERE user_id = $1 AND status = $2 AND order_number = ''
		 ORDER BY date`,
		userID, string(model.OrderStatusNew),
	)
	if err != nil {
		return nil, fmt.Errorf("select unnumbered groups: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan group date: %w", err)
		}
		dates = append(dates, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return dates, nil
}

func supplierEmails(ctx context.Context, tx pgx.Tx, userID int64, number string) ([]string, error) {
	rows, err := tx.Query(ctx,
		`SELECT DISTINCT u.email
		 FROM orders o
		 JOIN product_infos pi ON pi.id = o.product_info_id
		 JOIN shops s ON s.id = pi.shop_id
		 JOIN users u ON u.id = s.user_id
		 WHERE o.user_id = $1 AND o.order_number = $2
		 ORDER BY u.email`,
		userID, number,
	)
	if err != nil {
		return nil, fmt.Errorf("select supplier emails: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, fmt.Errorf("scan supplier email: %w", err)
		}
		emails = append(emails, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return emails, nil
}

func statusStrings(statuses []model.OrderStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}
