package app

import (
	"os"
	"time"
)

// Config описывает настройки запуска сервиса закупок.
type Config struct {
	// MetricsAddr — адрес HTTP-сервера метрик и health-проверок.
	MetricsAddr string
	// PostgresDSN — строка подключения к PostgreSQL.
	// Пустое значение означает in-memory хранилище.
	PostgresDSN string
	// KafkaBrokers — список брокеров через запятую. Пустое значение
	// отключает публикацию событий.
	KafkaBrokers string
	// OutboxPollInterval — период опроса transactional outbox.
	OutboxPollInterval time.Duration
	// SeedSampleData включает сидирование демонстрационных справочных данных.
	SeedSampleData bool
}

// DefaultConfig возвращает конфигурацию по умолчанию.
func DefaultConfig() Config {
	return Config{
		MetricsAddr:        ":9090",
		OutboxPollInterval: 2 * time.Second,
		SeedSampleData:     true,
	}
}

// LoadConfig читает конфигурацию из переменных окружения PROCUREMENT_*.
func LoadConfig() Config {
	cfg := DefaultConfig()

	if addr := os.Getenv("PROCUREMENT_METRICS_ADDR"); addr != "" {
		cfg.MetricsAddr = addr
	}
	cfg.PostgresDSN = os.Getenv("PROCUREMENT_POSTGRES_DSN")
	cfg.KafkaBrokers = os.Getenv("PROCUREMENT_KAFKA_BROKERS")
	if raw := os.Getenv("PROCUREMENT_OUTBOX_POLL_INTERVAL"); raw != "" {
		if interval, err := time.ParseDuration(raw); err == nil && interval > 0 {
			cfg.OutboxPollInterval = interval
		}
	}
	if os.Getenv("PROCUREMENT_SEED_SAMPLE_DATA") == "false" {
		cfg.SeedSampleData = false
	}

	return cfg
}
