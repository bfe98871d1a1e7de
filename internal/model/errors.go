package model

import "errors"

// Виды доменных ошибок. Конкретные ошибки оборачивают их через fmt.Errorf("%w: ...").
var (
	// ErrNotFound возвращается, если объект не найден или не принадлежит пользователю.
	ErrNotFound = errors.New("object does not exist")
	// ErrValidation возвращается при некорректных входных данных.
	ErrValidation = errors.New("validation failed")
	// ErrPermission возвращается при вызове операции без нужной роли.
	ErrPermission = errors.New("permission denied")
	// ErrConflict описывает повторное действие, которое не выполняется.
	ErrConflict = errors.New("conflict")
	// ErrUserExists возвращается при регистрации с уже занятым email.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials возвращается при неверной паре email/пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ConflictError описывает повторное действие, которое не выполняется.
// Клиенту возвращается информационное сообщение Message, а не ошибка.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// Is позволяет сопоставлять ConflictError с ErrConflict через errors.Is.
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }
