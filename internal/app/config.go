package app

import (
	"fmt"
	"time"
)

// Поддерживаемые драйверы хранилища.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска витрины.
type Config struct {
	HTTPAddr    string
	MetricsAddr string
	// GRPCAddr — адрес gRPC health-сервера; пустое значение отключает его.
	GRPCAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool

	// RedisAddr включает кэш списков; при пустом значении кэш не используется.
	RedisAddr     string
	RedisCacheTTL time.Duration

	// KafkaBrokers включает публикацию событий order.placed.
	KafkaBrokers       []string
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration
	// Обработанные сообщения outbox старше OutboxRetention удаляются
	// раз в OutboxCleanupInterval.
	OutboxRetention       time.Duration
	OutboxCleanupInterval time.Duration

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig возвращает настройки для локального запуска.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:              ":8000",
		MetricsAddr:           ":9090",
		GRPCAddr:              ":50051",
		StorageDriver:         StorageDriverMemory,
		PostgresAutoMigrate:   true,
		RedisCacheTTL:         30 * time.Second,
		OutboxPollInterval:    time.Second,
		OutboxBatchSize:       100,
		OutboxMaxAttempts:     3,
		OutboxRetryDelay:      50 * time.Millisecond,
		OutboxRetention:       24 * time.Hour,
		OutboxCleanupInterval: 10 * time.Minute,
		RequestTimeout:        5 * time.Second,
		ShutdownTimeout:       5 * time.Second,
	}
}

// Validate проверяет сочетание параметров до старта компонентов.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres dsn is required for storage driver %q", c.StorageDriver)
		}
	default:
		return fmt.Errorf("unsupported storage driver: %q", c.StorageDriver)
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("http addr is required")
	}
	return nil
}
