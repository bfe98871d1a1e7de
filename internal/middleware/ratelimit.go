package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Counter увеличивает счётчик запросов в окне и возвращает его новое значение.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisCounter считает запросы в Redis в фиксированных окнах.
type RedisCounter struct {
	rdb *redis.Client
}

// NewRedisCounter создаёт счётчик поверх клиента Redis.
func NewRedisCounter(rdb *redis.Client) *RedisCounter {
	return &RedisCounter{rdb: rdb}
}

// Incr выполняет INCR и продлевает время жизни ключа до конца окна.
func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("rate counter %s: %w", key, err)
	}
	return incr.Val(), nil
}

// RateLimiter ограничивает число запросов в час отдельно для пользователей и анонимов.
// Без счётчика пропускает все запросы.
type RateLimiter struct {
	counter   Counter
	userLimit int64
	anonLimit int64
	window    time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewRateLimiter создаёт ограничитель. counter может быть nil.
func NewRateLimiter(counter Counter, userLimit, anonLimit int, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		counter:   counter,
		userLimit: int64(userLimit),
		anonLimit: int64(anonLimit),
		window:    time.Hour,
		logger:    logger,
		now:       time.Now,
	}
}

// Middleware отвечает 429, если клиент исчерпал лимит текущего окна.
// Ошибки Redis не блокируют запросы.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	if l == nil || l.counter == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, limit := l.subject(r)
		if limit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		windowStart := l.now().Truncate(l.window)
		key := "ratelimit:" + subject + ":" + strconv.FormatInt(windowStart.Unix(), 10)

		n, err := l.counter.Incr(r.Context(), key, l.window)
		if err != nil {
			l.logger.Warn("rate limiter unavailable", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		if n > limit {
			retryAfter := windowStart.Add(l.window).Sub(l.now())
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
			writeError(w, http.StatusTooManyRequests, "request limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (l *RateLimiter) subject(r *http.Request) (string, int64) {
	if userID, ok := GetUserIDFromContext(r.Context()); ok {
		return "user:" + strconv.FormatInt(userID, 10), l.userLimit
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "anon:" + host, l.anonLimit
}
