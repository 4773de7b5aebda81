package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/webshop/internal/app"
)

const (
	envHTTPAddr            = "WEBSHOP_HTTP_ADDR"
	envMetricsAddr         = "WEBSHOP_METRICS_ADDR"
	envGRPCAddr            = "WEBSHOP_GRPC_ADDR"
	envStorageDriver       = "WEBSHOP_STORAGE_DRIVER"
	envPostgresDSN         = "WEBSHOP_POSTGRES_DSN"
	envPostgresAutoMigrate = "WEBSHOP_POSTGRES_AUTO_MIGRATE"
	envRedisAddr           = "WEBSHOP_REDIS_ADDR"
	envRedisCacheTTL       = "WEBSHOP_REDIS_CACHE_TTL"
	envKafkaBrokers        = "KAFKA_BROKERS"
	envOutboxPollInterval  = "WEBSHOP_OUTBOX_POLL_INTERVAL"
	envOutboxBatchSize     = "WEBSHOP_OUTBOX_BATCH_SIZE"
	envOutboxMaxAttempts   = "WEBSHOP_OUTBOX_MAX_ATTEMPTS"
	envOutboxRetryDelay    = "WEBSHOP_OUTBOX_RETRY_DELAY"
	envOutboxRetention     = "WEBSHOP_OUTBOX_RETENTION"
	envOutboxCleanup       = "WEBSHOP_OUTBOX_CLEANUP_INTERVAL"
	envRequestTimeout      = "WEBSHOP_REQUEST_TIMEOUT"
	envShutdownTimeout     = "WEBSHOP_SHUTDOWN_TIMEOUT"
)

type envLookup func(key string) (string, bool)

// readConfigFromEnv накладывает переменные окружения на DefaultConfig.
// Некорректные значения не применяются и возвращаются как предупреждения.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string

	warn := func(key, value string, err error) {
		warnings = append(warnings, fmt.Sprintf("%s=%q ignored: %v", key, value, err))
	}

	// Адреса можно задать пустыми, чтобы отключить сервер.
	stringVar := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	stringVar(envMetricsAddr, &cfg.MetricsAddr)
	stringVar(envGRPCAddr, &cfg.GRPCAddr)
	stringVar(envPostgresDSN, &cfg.PostgresDSN)
	stringVar(envRedisAddr, &cfg.RedisAddr)

	if v, ok := lookup(envHTTPAddr); ok && strings.TrimSpace(v) != "" {
		cfg.HTTPAddr = strings.TrimSpace(v)
	}
	if v, ok := lookup(envStorageDriver); ok && strings.TrimSpace(v) != "" {
		cfg.StorageDriver = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(envKafkaBrokers); ok {
		cfg.KafkaBrokers = splitList(v)
	}

	if v, ok := lookup(envPostgresAutoMigrate); ok {
		if parsed, err := parseBool(v); err != nil {
			warn(envPostgresAutoMigrate, v, err)
		} else {
			cfg.PostgresAutoMigrate = parsed
		}
	}

	positiveInt := func(v int) bool { return v > 0 }
	intVar := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok {
			return
		}
		parsed, err := parseInt(v, positiveInt, "must be > 0")
		if err != nil {
			warn(key, v, err)
			return
		}
		*dst = parsed
	}
	intVar(envOutboxBatchSize, &cfg.OutboxBatchSize)
	intVar(envOutboxMaxAttempts, &cfg.OutboxMaxAttempts)

	durationVar := func(key string, dst *time.Duration, allowZero bool) {
		v, ok := lookup(key)
		if !ok {
			return
		}
		check, rule := func(d time.Duration) bool { return d > 0 }, "must be > 0"
		if allowZero {
			check, rule = func(d time.Duration) bool { return d >= 0 }, "must be >= 0"
		}
		parsed, err := parseDuration(v, check, rule)
		if err != nil {
			warn(key, v, err)
			return
		}
		*dst = parsed
	}
	durationVar(envRedisCacheTTL, &cfg.RedisCacheTTL, false)
	durationVar(envOutboxPollInterval, &cfg.OutboxPollInterval, false)
	durationVar(envOutboxRetryDelay, &cfg.OutboxRetryDelay, true)
	durationVar(envOutboxRetention, &cfg.OutboxRetention, false)
	durationVar(envOutboxCleanup, &cfg.OutboxCleanupInterval, false)
	durationVar(envRequestTimeout, &cfg.RequestTimeout, false)
	durationVar(envShutdownTimeout, &cfg.ShutdownTimeout, false)

	return cfg, warnings
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value %q", raw)
	}
}

func parseInt(raw string, valid func(int) bool, rule string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid int value %q: %w", raw, err)
	}
	if !valid(value) {
		return 0, fmt.Errorf("value %d %s", value, rule)
	}
	return value, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, rule string) (time.Duration, error) {
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid duration value %q: %w", raw, err)
	}
	if !valid(value) {
		return 0, fmt.Errorf("value %s %s", value, rule)
	}
	return value, nil
}
