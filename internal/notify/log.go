package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogSender пишет письма в журнал. Используется, когда почтовый канал не настроен.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender создаёт LogSender.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send записывает письмо в журнал и всегда завершается успешно.
func (s *LogSender) Send(_ context.Context, n Notification) error {
	s.logger.Info("notification",
		zap.Strings("to", n.Recipients),
		zap.String("subject", n.Subject),
		zap.String("body", n.Body),
	)
	return nil
}
