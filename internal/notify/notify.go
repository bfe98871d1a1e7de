// Package notify доставляет почтовые уведомления, поставленные в очередь (outbox) сервисом.
package notify

import (
	"context"
	"time"
)

// Notification описывает письмо, которое нужно отправить.
type Notification struct {
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
}

// Message является уведомлением, взятым диспетчером из очереди.
type Message struct {
	ID           int64
	Notification Notification
	Attempts     int
	CreatedAt    time.Time
}

// Sender отправляет одно уведомление во внешний почтовый канал.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// Store описывает хранилище очереди уведомлений.
type Store interface {
	LockBatch(ctx context.Context, owner string, batchSize int, lease time.Duration) ([]Message, error)
	MarkSent(ctx context.Context, ids []int64) error
	MarkFailed(ctx context.Context, id int64, errMsg string, maxAttempts int) error
}
