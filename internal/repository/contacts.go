package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/procurement/internal/model"
)

const contactColumns = `id, user_id, city, street, house, structure, building, apartment, phone`

// ListContacts возвращает контакты пользователя.
func (r *PostgresRepository) ListContacts(ctx context.Context, userID int64) ([]model.Contact, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("select contacts: %w", err)
	}
	defer rows.Close()

	var res []model.Contact
	for rows.Next() {
		var c model.Contact
		if err := scanContact(rows, &c); err != nil {
			return nil, err
		}
		res = append(res, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// GetContact возвращает контакт пользователя по идентификатору.
func (r *PostgresRepository) GetContact(ctx context.Context, userID, id int64) (*model.Contact, error) {
	var c model.Contact
	row := r.pool.QueryRow(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = $1 AND user_id = $2`, id, userID)
	if err := scanContact(row, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// HasContact сообщает, указан ли у пользователя контакт для доставки.
func (r *PostgresRepository) HasContact(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM contacts WHERE user_id = $1)`, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check contact: %w", err)
	}
	return exists, nil
}

// CreateContact создаёт контакт пользователя. У пользователя может быть только один контакт.
func (r *PostgresRepository) CreateContact(ctx context.Context, c model.Contact) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO contacts (user_id, city, street, house, structure, building, apartment, phone)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		c.UserID, c.City, c.Street, c.House, c.Structure, c.Building, c.Apartment, c.Phone,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, &model.ConflictError{Message: "contact already exists"}
		}
		return 0, fmt.Errorf("create contact: %w", err)
	}
	return id, nil
}

// UpdateContact изменяет контакт пользователя.
func (r *PostgresRepository) UpdateContact(ctx context.Context, c model.Contact) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE contacts
		 SET city = $3, street = $4, house = $5, structure = $6, building = $7, apartment = $8, phone = $9
		 WHERE id = $1 AND user_id = $2`,
		c.ID, c.UserID, c.City, c.Street, c.House, c.Structure, c.Building, c.Apartment, c.Phone,
	)
	if err != nil {
		return fmt.Errorf("update contact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: contact %d", model.ErrNotFound, c.ID)
	}
	return nil
}

// DeleteContact удаляет контакт пользователя.
func (r *PostgresRepository) DeleteContact(ctx context.Context, userID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM contacts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: contact %d", model.ErrNotFound, id)
	}
	return nil
}

func scanContact(row pgx.Row, c *model.Contact) error {
	err := row.Scan(&c.ID, &c.UserID, &c.City, &c.Street, &c.House, &c.Structure,
		&c.Building, &c.Apartment, &c.Phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: contact", model.ErrNotFound)
		}
		return fmt.Errorf("scan contact: %w", err)
	}
	return nil
}
