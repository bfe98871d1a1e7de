// Package main запускает HTTP-сервер и рассыльщик уведомлений сервиса закупок.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/procurement/internal/config"
	"github.com/mmeshcher/procurement/internal/handler"
	"github.com/mmeshcher/procurement/internal/middleware"
	"github.com/mmeshcher/procurement/internal/notify"
	"github.com/mmeshcher/procurement/internal/repository"
	"github.com/mmeshcher/procurement/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	sender, closeSender, err := newSender(cfg, logger)
	if err != nil {
		sugar.Fatalw("notification sender initialization error", "error", err.Error())
	}
	defer closeSender()

	svc := service.NewService(repo, repo, logger)
	defer svc.Close()

	var counter middleware.Counter
	if cfg.RedisAddress != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
		defer rdb.Close()
		counter = middleware.NewRedisCounter(rdb)
	}
	limiter := middleware.NewRateLimiter(counter, cfg.RateLimitUser, cfg.RateLimitAnon, logger)

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	h := handler.NewHandler(svc, logger, authMiddleware, limiter)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	dispatcher := notify.NewDispatcher(repo, sender, logger, cfg.NotifyWorkers)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Рассылка уведомлений из очереди
	g.Go(func() error {
		return dispatcher.Run(ctx)
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting procurement server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

// newSender выбирает канал доставки писем: RabbitMQ, HTTP-шлюз или журнал.
func newSender(cfg *config.Config, logger *zap.Logger) (notify.Sender, func(), error) {
	switch {
	case cfg.AMQPURL != "":
		conn, err := amqp.Dial(cfg.AMQPURL)
		if err != nil {
			return nil, nil, fmt.Errorf("dial amqp: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("open amqp channel: %w", err)
		}
		sender, err := notify.NewRabbitSender(ch, cfg.MailFrom)
		if err != nil {
			ch.Close()
			conn.Close()
			return nil, nil, err
		}
		logger.Info("notifications are published to rabbitmq")
		return sender, func() {
			ch.Close()
			conn.Close()
		}, nil
	case cfg.MailGatewayAddress != "":
		logger.Info("notifications are sent to mail gateway", zap.String("addr", cfg.MailGatewayAddress))
		return notify.NewGatewaySender(cfg.MailGatewayAddress, cfg.MailFrom), func() {}, nil
	default:
		logger.Warn("no mail transport configured, notifications are written to the log")
		return notify.NewLogSender(logger), func() {}, nil
	}
}
