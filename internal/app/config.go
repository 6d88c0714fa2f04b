package app

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config описывает настройки запуска движка, читаемые из окружения.
type Config struct {
	// DatabaseURL — DSN PostgreSQL; пустое значение включает in-memory
	// хранилище (локальная разработка и тесты).
	DatabaseURL string `env:"DATABASE_URL"`
	// KafkaBrokers — адреса брокеров; пустой список отключает публикацию
	// событий наружу.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9090"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"text"`

	MigrateOnStart bool `env:"MIGRATE_ON_START" envDefault:"true"`

	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"1s"`
	OutboxBatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"100"`
	OutboxMaxAttempts  int           `env:"OUTBOX_MAX_ATTEMPTS" envDefault:"3"`
}

// LoadConfig читает конфигурацию из переменных окружения.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment config: %w", err)
	}
	return cfg, nil
}
