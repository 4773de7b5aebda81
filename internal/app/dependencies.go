package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/webshop/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/webshop/internal/health"
	"github.com/vladislavdragonenkov/webshop/internal/storage/memory"
	"github.com/vladislavdragonenkov/webshop/internal/storage/postgres"
)

// runtimeDependencies — хранилище, выбранное драйвером.
// closeFn закрывает его при остановке и может быть nil.
type runtimeDependencies struct {
	repo           domain.ShopRepository
	outboxRepo     domain.OutboxRepository
	storageChecker healthcheck.Checker
	closeFn        func() error
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	switch cfg.StorageDriver {
	case StorageDriverMemory:
		outbox := memory.NewOutboxRepository()
		// Без брокеров события некому публиковать, а очистка не трогает pending.
		var enqueue *memory.OutboxRepository
		if len(cfg.KafkaBrokers) > 0 {
			enqueue = outbox
		}
		logger.WithField("outbox_enabled", enqueue != nil).Info("using in-memory storage with demo data")
		return &runtimeDependencies{
			repo:       memory.NewSeededShopRepository(enqueue),
			outboxRepo: outbox,
			storageChecker: healthcheck.NewCheckFunc("storage", func(context.Context) error {
				return nil
			}),
		}, nil
	case StorageDriverPostgres:
		return initPostgresDependencies(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %q", cfg.StorageDriver)
	}
}

func initPostgresDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres store: %w", err)
	}

	if cfg.PostgresAutoMigrate {
		if err := store.MigrateUp(ctx, 0); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("apply postgres migrations: %w", err)
		}
		schemaVersion, applied, err := store.MigrationStatus(ctx)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("read migration status: %w", err)
		}
		logger.WithFields(log.Fields{
			"schema_version": schemaVersion,
			"applied":        applied,
		}).Info("postgres migrations applied")
	}

	logger.Info("using postgres storage")
	return &runtimeDependencies{
		repo:           postgres.NewShopRepository(store),
		outboxRepo:     postgres.NewOutboxRepository(store),
		storageChecker: healthcheck.NewCheckFunc("storage", store.Ping),
		closeFn:        store.Close,
	}, nil
}

func closeStorage(deps *runtimeDependencies, logger *log.Entry) {
	if deps == nil || deps.closeFn == nil {
		return
	}
	if err := deps.closeFn(); err != nil {
		logger.WithError(err).Warn("failed to close storage")
		return
	}
	logger.Info("storage closed")
}
