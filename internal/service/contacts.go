package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/procurement/internal/model"
	"github.com/mmeshcher/procurement/internal/validation"
)

// ListContacts возвращает контакты пользователя.
func (s *Service) ListContacts(ctx context.Context, userID int64) ([]model.Contact, error) {
	return s.repo.ListContacts(ctx, userID)
}

// CreateContact сохраняет единственный контакт пользователя и оформляет его корзину.
// Если оформление не удалось, контакт остаётся сохранённым, а корзину оформляет Checkout.
func (s *Service) CreateContact(ctx context.Context, c model.Contact) (*model.Contact, error) {
	if err := validateContact(&c); err != nil {
		return nil, err
	}

	id, err := s.repo.CreateContact(ctx, c)
	if err != nil {
		if errors.Is(err, model.ErrConflict) {
			return nil, &model.ConflictError{Message: "a user may have at most one contact"}
		}
		return nil, err
	}
	c.ID = id

	if err := s.contacts.OnContactCreated(ctx, ContactCreated{UserID: c.UserID}); err != nil {
		s.logger.Warn("basket checkout after contact creation failed",
			zap.Int64("userID", c.UserID),
			zap.Int64("contactID", id),
			zap.Error(err),
		)
		return nil, fmt.Errorf("contact %d saved, basket checkout failed: %w", id, err)
	}
	return &c, nil
}

// UpdateContact изменяет контакт пользователя.
func (s *Service) UpdateContact(ctx context.Context, c model.Contact) (*model.Contact, error) {
	if err := validateContact(&c); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateContact(ctx, c); err != nil {
		return nil, err
	}
	return &c, nil
}

// DeleteContact отменяет активные заказы пользователя и удаляет его контакт.
// Заказы отменяются до удаления, чтобы не осталось активного заказа без адреса.
func (s *Service) DeleteContact(ctx context.Context, userID, id int64) (string, error) {
	if _, err := s.repo.GetContact(ctx, userID, id); err != nil {
		return "", err
	}

	if err := s.contacts.OnContactRemoved(ctx, ContactRemoved{UserID: userID}); err != nil {
		return "", err
	}

	if err := s.repo.DeleteContact(ctx, userID, id); err != nil {
		return "", err
	}
	return fmt.Sprintf("Contact %d deleted", id), nil
}

func validateContact(c *model.Contact) error {
	c.City = strings.TrimSpace(c.City)
	c.Street = strings.TrimSpace(c.Street)
	c.Phone = strings.TrimSpace(c.Phone)

	var missing []string
	if c.City == "" {
		missing = append(missing, "city")
	}
	if c.Street == "" {
		missing = append(missing, "street")
	}
	if c.Phone == "" {
		missing = append(missing, "phone")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: required fields: %s", model.ErrValidation, strings.Join(missing, ", "))
	}
	if !validation.IsValidPhone(c.Phone) {
		return fmt.Errorf("%w: invalid phone %q", model.ErrValidation, c.Phone)
	}
	return nil
}
