package service

import "context"

// ContactCreated сообщает, что пользователь указал контакт для доставки.
type ContactCreated struct {
	UserID int64
}

// ContactRemoved сообщает, что пользователь удалил контакт для доставки.
type ContactRemoved struct {
	UserID int64
}

// ContactEventHandler обрабатывает события о контактах пользователя.
type ContactEventHandler interface {
	OnContactCreated(ctx context.Context, e ContactCreated) error
	OnContactRemoved(ctx context.Context, e ContactRemoved) error
}
