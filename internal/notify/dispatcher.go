package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	notificationsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "procurement",
		Subsystem: "notify",
		Name:      "sent_total",
		Help:      "Total number of delivered notifications.",
	})
	notificationsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "procurement",
		Subsystem: "notify",
		Name:      "failed_total",
		Help:      "Total number of failed notification attempts.",
	})
)

func init() {
	prometheus.MustRegister(notificationsSent, notificationsFailed)
}

// Dispatcher периодически забирает уведомления из очереди и рассылает их пулом воркеров.
// Доставка "хотя бы один раз": неудачная отправка возвращает сообщение в очередь,
// пока не исчерпан лимит попыток.
type Dispatcher struct {
	store  Store
	sender Sender
	logger *zap.Logger

	owner       string
	workers     int
	batchSize   int
	interval    time.Duration
	lease       time.Duration
	maxAttempts int

	mu          sync.Mutex
	pausedUntil time.Time
	now         func() time.Time
}

// Option настраивает Dispatcher.
type Option func(*Dispatcher)

// WithInterval задаёт период опроса очереди.
func WithInterval(d time.Duration) Option {
	return func(dp *Dispatcher) { dp.interval = d }
}

// WithBatchSize задаёт размер пачки сообщений за один опрос.
func WithBatchSize(n int) Option {
	return func(dp *Dispatcher) { dp.batchSize = n }
}

// WithMaxAttempts задаёт число попыток доставки одного сообщения.
func WithMaxAttempts(n int) Option {
	return func(dp *Dispatcher) { dp.maxAttempts = n }
}

// NewDispatcher создаёт диспетчер с указанным числом воркеров.
func NewDispatcher(store Store, sender Sender, logger *zap.Logger, workers int, opts ...Option) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	d := &Dispatcher{
		store:       store,
		sender:      sender,
		logger:      logger,
		owner:       uuid.NewString(),
		workers:     workers,
		batchSize:   100,
		interval:    500 * time.Millisecond,
		lease:       30 * time.Second,
		maxAttempts: 5,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run обрабатывает очередь до отмены контекста.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.Info("notification dispatcher started", zap.String("owner", d.owner), zap.Int("workers", d.workers))

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("notification dispatcher stopping", zap.String("owner", d.owner))
			return nil
		case <-ticker.C:
			if d.paused() {
				continue
			}
			if _, err := d.ProcessBatch(ctx); err != nil {
				d.logger.Error("notification batch error", zap.Error(err))
			}
		}
	}
}

// ProcessBatch забирает одну пачку сообщений и рассылает её. Возвращает число доставленных.
func (d *Dispatcher) ProcessBatch(ctx context.Context) (int, error) {
	msgs, err := d.store.LockBatch(ctx, d.owner, d.batchSize, d.lease)
	if err != nil {
		return 0, err
	}
	if len(msgs) == 0 {
		return 0, nil
	}

	var (
		mu   sync.Mutex
		sent = make([]int64, 0, len(msgs))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)

	for _, m := range msgs {
		m := m
		g.Go(func() error {
			if err := d.sender.Send(gctx, m.Notification); err != nil {
				notificationsFailed.Inc()
				d.logger.Warn("notification send failed",
					zap.Error(err),
					zap.Int64("id", m.ID),
					zap.Int("attempt", m.Attempts+1),
				)
				var limited *RateLimitedError
				if errors.As(err, &limited) {
					d.pause(limited.RetryAfter)
				}
				if markErr := d.store.MarkFailed(ctx, m.ID, err.Error(), d.maxAttempts); markErr != nil {
					d.logger.Error("mark notification failed", zap.Error(markErr), zap.Int64("id", m.ID))
				}
				return nil
			}

			notificationsSent.Inc()
			mu.Lock()
			sent = append(sent, m.ID)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if len(sent) > 0 {
		if err := d.store.MarkSent(ctx, sent); err != nil {
			return 0, err
		}
	}

	return len(sent), nil
}

// pause приостанавливает опрос очереди, пока почтовый канал ограничивает частоту запросов.
func (d *Dispatcher) pause(retryAfter time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if until := d.now().Add(retryAfter); until.After(d.pausedUntil) {
		d.pausedUntil = until
		d.logger.Warn("notification dispatcher paused", zap.Duration("retryAfter", retryAfter))
	}
}

func (d *Dispatcher) paused() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.now().Before(d.pausedUntil)
}
