package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	mailExchange   = "mail"
	mailRoutingKey = "mail.send"
	mailQueue      = "mail.send.q"
)

// Publisher публикует сообщение в AMQP-канал.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RabbitSender передаёт письма внешнему почтовому воркеру через RabbitMQ.
type RabbitSender struct {
	mu   sync.Mutex
	pub  Publisher
	from string
}

// NewRabbitSender объявляет exchange и очередь почтовых заданий.
func NewRabbitSender(ch *amqp.Channel, from string) (*RabbitSender, error) {
	if err := ch.ExchangeDeclare(mailExchange, "direct", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(mailQueue, true, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, mailRoutingKey, mailExchange, false, nil); err != nil {
		return nil, fmt.Errorf("queue bind: %w", err)
	}

	return &RabbitSender{pub: ch, from: from}, nil
}

type mailJob struct {
	From string `json:"from"`
	Notification
}

// Send публикует письмо как постоянное сообщение.
func (s *RabbitSender) Send(ctx context.Context, n Notification) error {
	body, err := json.Marshal(mailJob{From: s.from, Notification: n})
	if err != nil {
		return fmt.Errorf("marshal mail job: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	}

	// Канал AMQP используется воркерами диспетчера совместно.
	s.mu.Lock()
	err = s.pub.PublishWithContext(ctx, mailExchange, mailRoutingKey, false, false, pub)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}
