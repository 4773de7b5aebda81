package app

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/webshop/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/webshop/internal/health"
)

func quietLogger() *log.Entry {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger.WithField("component", "app-test")
}

func TestInitRuntimeDependencies_Memory(t *testing.T) {
	cfg := Config{StorageDriver: StorageDriverMemory, KafkaBrokers: []string{"127.0.0.1:9092"}}
	deps, err := initRuntimeDependencies(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	require.NotNil(t, deps.repo)
	require.NotNil(t, deps.outboxRepo)
	require.Nil(t, deps.closeFn)
	require.Equal(t, healthcheck.StatusHealthy, deps.storageChecker.Check(context.Background()).Status)

	articles, err := deps.repo.ListArticles(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, articles)

	_, err = deps.repo.PlaceOrder(context.Background(), domain.PlaceOrderRequest{
		ClientID: 1,
		Lines:    []domain.LineRequest{{ArticleID: articles[0].ID, Amount: 1}},
	})
	require.NoError(t, err)

	pending, err := deps.outboxRepo.PullPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

func TestInitRuntimeDependencies_MemoryWithoutKafkaSkipsOutbox(t *testing.T) {
	deps, err := initRuntimeDependencies(context.Background(), Config{StorageDriver: StorageDriverMemory}, quietLogger())
	require.NoError(t, err)
	require.NotNil(t, deps.outboxRepo)

	for i := 0; i < 3; i++ {
		_, err = deps.repo.PlaceOrder(context.Background(), domain.PlaceOrderRequest{
			ClientID: 1,
			Lines:    []domain.LineRequest{{ArticleID: 1, Amount: 1}},
		})
		require.NoError(t, err)
	}

	stats, err := deps.outboxRepo.Stats(context.Background())
	require.NoError(t, err)
	require.Zero(t, stats.PendingCount)
}

func TestInitRuntimeDependencies_PostgresRequiresDSN(t *testing.T) {
	_, err := initRuntimeDependencies(context.Background(), Config{StorageDriver: StorageDriverPostgres}, quietLogger())
	require.Error(t, err)
}

func TestInitRuntimeDependencies_UnsupportedDriver(t *testing.T) {
	_, err := initRuntimeDependencies(context.Background(), Config{StorageDriver: "sqlite"}, quietLogger())
	require.ErrorContains(t, err, "unsupported storage driver")
}

func TestInitRuntimeDependencies_PostgresSuccess(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("WEBSHOP_POSTGRES_TEST_DSN"))
	if dsn == "" {
		t.Skip("WEBSHOP_POSTGRES_TEST_DSN is not set")
	}

	cfg := DefaultConfig()
	cfg.StorageDriver = StorageDriverPostgres
	cfg.PostgresDSN = dsn

	deps, err := initRuntimeDependencies(context.Background(), cfg, quietLogger())
	if err != nil {
		t.Skipf("postgres is not available for app integration test: %v", err)
	}
	t.Cleanup(func() { closeStorage(deps, quietLogger()) })

	require.NotNil(t, deps.repo)
	require.NotNil(t, deps.outboxRepo)
	require.Equal(t, healthcheck.StatusHealthy, deps.storageChecker.Check(context.Background()).Status)
}

func TestInitReadCache(t *testing.T) {
	readCache, checker, closer := initReadCache(Config{}, quietLogger())
	require.NotNil(t, readCache)
	require.Nil(t, checker)
	require.Nil(t, closer)

	readCache, checker, closer = initReadCache(Config{RedisAddr: "127.0.0.1:1"}, quietLogger())
	require.NotNil(t, readCache)
	require.NotNil(t, checker)
	require.NotNil(t, closer)
	require.NoError(t, closer.Close())
}

func TestKafkaHelpers_Disabled(t *testing.T) {
	producer, err := initKafkaProducer(nil, quietLogger())
	require.NoError(t, err)
	require.Nil(t, producer)

	closeKafkaProducer(nil, quietLogger())
	shutdownBackground(nil, nil, "outbox worker", quietLogger())

	called := false
	done := make(chan struct{})
	close(done)
	shutdownBackground(func() { called = true }, done, "outbox worker", quietLogger())
	require.True(t, called)
}

func TestStartOutboxCleanup_StopsOnShutdown(t *testing.T) {
	deps, err := initRuntimeDependencies(context.Background(), DefaultConfig(), quietLogger())
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.OutboxCleanupInterval = 5 * time.Millisecond
	cancel, done := startOutboxCleanup(context.Background(), cfg, deps.outboxRepo, prometheus.NewRegistry(), quietLogger())

	shutdownBackground(cancel, done, "outbox cleanup worker", quietLogger())
	select {
	case <-done:
	default:
		t.Fatal("cleanup worker must be stopped after shutdown")
	}
}
