package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/procurement/internal/model"
)

// ListShops возвращает все магазины.
func (r *PostgresRepository) ListShops(ctx context.Context) ([]model.Shop, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, url, user_id, is_active FROM shops ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select shops: %w", err)
	}
	defer rows.Close()

	var shops []model.Shop
	for rows.Next() {
		var s model.Shop
		if err := rows.Scan(&s.ID, &s.Name, &s.URL, &s.UserID, &s.IsActive); err != nil {
			return nil, fmt.Errorf("scan shop: %w", err)
		}
		shops = append(shops, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return shops, nil
}

// GetShop возвращает магазин по идентификатору.
func (r *PostgresRepository) GetShop(ctx context.Context, id int64) (*model.Shop, error) {
	var s model.Shop
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, url, user_id, is_active FROM shops WHERE id = $1`, id,
	).Scan(&s.ID, &s.Name, &s.URL, &s.UserID, &s.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: shop %d", model.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get shop: %w", err)
	}
	return &s, nil
}

// UpdateShop изменяет магазин, принадлежащий поставщику ownerID.
func (r *PostgresRepository) UpdateShop(ctx context.Context, ownerID int64, s model.Shop) (*model.Shop, error) {
	var out model.Shop
	err := r.pool.QueryRow(ctx,
		`UPDATE shops SET name = $3, url = $4, is_active = $5
		 WHERE id = $1 AND user_id = $2
		 RETURNING id, name, url, user_id, is_active`,
		s.ID, ownerID, s.Name, s.URL, s.IsActive,
	).Scan(&out.ID, &out.Name, &out.URL, &out.UserID, &out.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: shop %d", model.ErrNotFound, s.ID)
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: shop name %q is taken", model.ErrValidation, s.Name)
		}
		return nil, fmt.Errorf("update shop: %w", err)
	}
	return &out, nil
}

// AssignShops прикрепляет к каждому поставщику магазин, название которого совпадает
// с его компанией. Возвращает соответствие email поставщика и названия магазина.
func (r *PostgresRepository) AssignShops(ctx context.Context) (map[string]string, error) {
	assigned := make(map[string]string)

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`UPDATE shops s SET user_id = u.id
			 FROM users u
			 WHERE u.type = $1 AND u.company = s.name
			 RETURNING u.email, s.name`,
			string(model.UserTypeSupplier),
		)
		if err != nil {
			return fmt.Errorf("assign shops: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var email, shop string
			if err := rows.Scan(&email, &shop); err != nil {
				return fmt.Errorf("scan assignment: %w", err)
			}
			assigned[email] = shop
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return assigned, nil
}

// ListCategories возвращает все категории.
func (r *PostgresRepository) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	defer rows.Close()

	var res []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		res = append(res, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// ListProducts возвращает товары, название которых содержит search.
// При descending сортировка по названию обратная.
func (r *PostgresRepository) ListProducts(ctx context.Context, search string, descending bool) ([]model.Product, error) {
	order := "ASC"
	if descending {
		order = "DESC"
	}

	rows, err := r.pool.Query(ctx,
		`SELECT p.id, p.name, c.name
		 FROM products p
		 JOIN categories c ON c.id = p.category_id
		 WHERE $1 = '' OR p.name ILIKE '%' || $1 || '%'
		 ORDER BY p.name `+order,
		search,
	)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var res []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		res = append(res, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// GetProductInfo возвращает предложение по товару вместе с характеристиками.
func (r *PostgresRepository) GetProductInfo(ctx context.Context, id int64) (*model.ProductInfo, error) {
	var (
		pi     model.ProductInfo
		shopID *int64
	)
	err := r.pool.QueryRow(ctx,
		`SELECT pi.id, pi.name, pi.product_id, p.name, pi.shop_id, COALESCE(s.name, ''),
		        pi.quantity_in_stock, pi.price, pi.retail_price, pi.basket
		 FROM product_infos pi
		 JOIN products p ON p.id = pi.product_id
		 LEFT JOIN shops s ON s.id = pi.shop_id
		 WHERE pi.id = $1`,
		id,
	).Scan(&pi.ID, &pi.Name, &pi.ProductID, &pi.Product, &shopID, &pi.Shop,
		&pi.QuantityInStock, &pi.Price, &pi.RetailPrice, &pi.Basket)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: product info %d", model.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get product info: %w", err)
	}
	if shopID != nil {
		pi.ShopID = *shopID
	}

	rows, err := r.pool.Query(ctx,
		`SELECT pr.name, pp.value
		 FROM product_parameters pp
		 JOIN parameters pr ON pr.id = pp.parameter_id
		 WHERE pp.product_info_id = $1
		 ORDER BY pr.name`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("select parameters: %w", err)
	}
	defer rows.Close()

	pi.Parameters = []model.ProductParameter{}
	for rows.Next() {
		var p model.ProductParameter
		if err := rows.Scan(&p.Parameter, &p.Value); err != nil {
			return nil, fmt.Errorf("scan parameter: %w", err)
		}
		pi.Parameters = append(pi.Parameters, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return &pi, nil
}

// CreateProductInfo создаёт предложение в магазине поставщика ownerID.
func (r *PostgresRepository) CreateProductInfo(ctx context.Context, ownerID int64, pi model.ProductInfo) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO product_infos (name, product_id, shop_id, quantity_in_stock, price, retail_price)
		 SELECT $2, $3, s.id, $4, $5, $6 FROM shops s WHERE s.user_id = $1
		 RETURNING id`,
		ownerID, pi.Name, pi.ProductID, pi.QuantityInStock, pi.Price, pi.RetailPrice,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%w: supplier has no shop", model.ErrNotFound)
		}
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: product info %q already exists", model.ErrValidation, pi.Name)
		}
		if isForeignKeyViolation(err) {
			return 0, fmt.Errorf("%w: product %d", model.ErrNotFound, pi.ProductID)
		}
		return 0, fmt.Errorf("create product info: %w", err)
	}
	return id, nil
}

// UpdateProductStock изменяет остаток и розничную цену предложения в магазине поставщика ownerID.
func (r *PostgresRepository) UpdateProductStock(ctx context.Context, ownerID, id, quantity, retailPrice int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE product_infos pi SET quantity_in_stock = $3, retail_price = $4
		 FROM shops s
		 WHERE pi.id = $1 AND s.id = pi.shop_id AND s.user_id = $2`,
		id, ownerID, quantity, retailPrice,
	)
	if err != nil {
		return fmt.Errorf("update product info: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: product info %d", model.ErrNotFound, id)
	}
	return nil
}

// DeleteProductInfo удаляет предложение из магазина поставщика ownerID вместе со строками корзин.
// Предложение, на которое ссылаются оформленные заказы, не удаляется.
func (r *PostgresRepository) DeleteProductInfo(ctx context.Context, ownerID, id int64) error {
	return r.withRetry(ctx, func() error {
		return r.inTx(ctx, func(tx pgx.Tx) error {
			var locked int64
			err := tx.QueryRow(ctx,
				`SELECT pi.id FROM product_infos pi
				 JOIN shops s ON s.id = pi.shop_id
				 WHERE pi.id = $1 AND s.user_id = $2
				 FOR UPDATE OF pi`,
				id, ownerID,
			).Scan(&locked)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return fmt.Errorf("%w: product info %d", model.ErrNotFound, id)
				}
				return fmt.Errorf("lock product info: %w", err)
			}

			var placed int64
			if err := tx.QueryRow(ctx,
				`SELECT COUNT(*) FROM orders WHERE product_info_id = $1 AND status <> $2`,
				id, string(model.OrderStatusBasket),
			).Scan(&placed); err != nil {
				return fmt.Errorf("count placed orders: %w", err)
			}
			if placed > 0 {
				return fmt.Errorf("%w: product info %d is used in %d placed orders", model.ErrValidation, id, placed)
			}

			if _, err := tx.Exec(ctx,
				`DELETE FROM orders WHERE product_info_id = $1 AND status = $2`,
				id, string(model.OrderStatusBasket),
			); err != nil {
				return fmt.Errorf("delete basket rows: %w", err)
			}

			if _, err := tx.Exec(ctx, `DELETE FROM product_infos WHERE id = $1`, id); err != nil {
				if isForeignKeyViolation(err) || isRestrictViolation(err) {
					return fmt.Errorf("%w: product info %d is used in placed orders", model.ErrValidation, id)
				}
				return fmt.Errorf("delete product info: %w", err)
			}
			return nil
		})
	})
}
