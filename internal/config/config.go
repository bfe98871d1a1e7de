// Package config содержит логику чтения конфигурации сервиса закупок.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

const (
	defaultRunAddress    = "localhost:8080"
	defaultMailFrom      = "noreply@procurement.local"
	defaultNotifyWorkers = 4
	defaultRateUser      = 1000
	defaultRateAnon      = 100
)

// Config содержит параметры конфигурации сервиса закупок.
type Config struct {
	RunAddress         string `env:"RUN_ADDRESS"`
	DatabaseURI        string `env:"DATABASE_URI"`
	RedisAddress       string `env:"REDIS_ADDRESS"`
	AMQPURL            string `env:"AMQP_URL"`
	MailGatewayAddress string `env:"MAIL_GATEWAY_ADDRESS"`
	MailFrom           string `env:"MAIL_FROM"`
	AuthSecret         string `env:"AUTH_SECRET"`
	NotifyWorkers      int    `env:"NOTIFY_WORKERS"`
	// Лимиты запросов в час для авторизованных и анонимных клиентов.
	RateLimitUser int `env:"RATE_LIMIT_USER"`
	RateLimitAnon int `env:"RATE_LIMIT_ANON"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Значения из окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	envCfg := Config{}
	if err := env.Parse(&envCfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg := &Config{}
	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.RedisAddress, "r", "", "redis address for rate limiting")
	flag.StringVar(&cfg.AMQPURL, "q", "", "RabbitMQ URL for mail jobs")
	flag.StringVar(&cfg.MailGatewayAddress, "m", "", "mail gateway address")
	flag.StringVar(&cfg.MailFrom, "f", defaultMailFrom, "sender address for notifications")
	flag.StringVar(&cfg.AuthSecret, "s", "", "secret for signing auth cookies")
	flag.IntVar(&cfg.NotifyWorkers, "w", defaultNotifyWorkers, "notification worker count")
	flag.IntVar(&cfg.RateLimitUser, "u", defaultRateUser, "requests per hour for authenticated users")
	flag.IntVar(&cfg.RateLimitAnon, "n", defaultRateAnon, "requests per hour for anonymous clients")

	flag.Parse()

	overrideString(&cfg.RunAddress, envCfg.RunAddress)
	overrideString(&cfg.DatabaseURI, envCfg.DatabaseURI)
	overrideString(&cfg.RedisAddress, envCfg.RedisAddress)
	overrideString(&cfg.AMQPURL, envCfg.AMQPURL)
	overrideString(&cfg.MailGatewayAddress, envCfg.MailGatewayAddress)
	overrideString(&cfg.MailFrom, envCfg.MailFrom)
	overrideString(&cfg.AuthSecret, envCfg.AuthSecret)
	overrideInt(&cfg.NotifyWorkers, envCfg.NotifyWorkers)
	overrideInt(&cfg.RateLimitUser, envCfg.RateLimitUser)
	overrideInt(&cfg.RateLimitAnon, envCfg.RateLimitAnon)

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.NotifyWorkers <= 0 {
		cfg.NotifyWorkers = defaultNotifyWorkers
	}

	return cfg, nil
}

func overrideString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
