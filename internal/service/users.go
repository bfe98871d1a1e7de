package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/mmeshcher/procurement/internal/model"
	"github.com/mmeshcher/procurement/internal/validation"
)

// Registration содержит данные для регистрации пользователя.
type Registration struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Company   string
	Position  string
	Type      model.UserType
}

// RegisterUser регистрирует нового пользователя и ставит в очередь приветственное письмо.
func (s *Service) RegisterUser(ctx context.Context, reg Registration) (int64, error) {
	reg.Email = strings.TrimSpace(strings.ToLower(reg.Email))
	if !validation.IsValidEmail(reg.Email) {
		return 0, fmt.Errorf("%w: invalid email", model.ErrValidation)
	}
	if reg.Password == "" {
		return 0, fmt.Errorf("%w: password is required", model.ErrValidation)
	}
	if reg.Type == "" {
		reg.Type = model.UserTypeBuyer
	}
	if !reg.Type.Valid() {
		return 0, fmt.Errorf("%w: unknown user type %q", model.ErrValidation, reg.Type)
	}

	u := model.User{
		Email:        reg.Email,
		PasswordHash: hashPassword(reg.Email, reg.Password),
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		Company:      reg.Company,
		Position:     reg.Position,
		Type:         reg.Type,
	}

	id, err := s.repo.CreateUser(ctx, u)
	if err != nil {
		return 0, err
	}

	s.enqueue(ctx, welcomeNotification(u))
	return id, nil
}

// AuthenticateUser проверяет email и пароль пользователя и возвращает его идентификатор.
func (s *Service) AuthenticateUser(ctx context.Context, email, password string) (int64, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return 0, model.ErrInvalidCredentials
		}
		return 0, err
	}

	hashed := hashPassword(email, password)
	if subtle.ConstantTimeCompare(hashed, u.PasswordHash) != 1 {
		return 0, model.ErrInvalidCredentials
	}

	return u.ID, nil
}

func hashPassword(email, password string) []byte {
	sum := sha256.Sum256([]byte(email + ":" + password))
	return sum[:]
}

// requireSupplier возвращает пользователя, если он поставщик, иначе ErrPermission.
func (s *Service) requireSupplier(ctx context.Context, userID int64) (*model.User, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Type != model.UserTypeSupplier {
		return nil, fmt.Errorf("%w: only for suppliers", model.ErrPermission)
	}
	return u, nil
}
