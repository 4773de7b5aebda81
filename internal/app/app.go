// Package app собирает витрину: хранилище, кэш, Kafka, HTTP API, метрики и gRPC health.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	healthcheck "github.com/vladislavdragonenkov/webshop/internal/health"
	"github.com/vladislavdragonenkov/webshop/internal/metrics"
	"github.com/vladislavdragonenkov/webshop/internal/service/shop"
	"github.com/vladislavdragonenkov/webshop/internal/transport/httpapi"
	"github.com/vladislavdragonenkov/webshop/internal/version"
)

// Run запускает все компоненты и блокируется до отмены ctx или ошибки сервера.
// Компоненты останавливаются в обратном порядке; хранилище закрывается последним.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStorage(deps, logger)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", deps.storageChecker)

	readCache, cacheChecker, cacheCloser := initReadCache(cfg, logger)
	if cacheChecker != nil {
		healthHandler.RegisterOptionalChecker("redis", cacheChecker)
	}
	defer closeQuietly(cacheCloser, "read cache", logger)

	producer, err := initKafkaProducer(cfg.KafkaBrokers, logger)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		producer = nil
	}
	var (
		stopWorker context.CancelFunc
		workerDone <-chan struct{}
	)
	if producer != nil {
		stopWorker, workerDone = startOutboxWorker(ctx, cfg, deps.outboxRepo, producer, registry, logger)
	}
	// Воркер должен остановиться раньше, чем закроется producer.
	defer closeKafkaProducer(producer, logger)
	defer shutdownBackground(stopWorker, workerDone, "outbox worker", logger)

	stopCleanup, cleanupDone := startOutboxCleanup(ctx, cfg, deps.outboxRepo, registry, logger)
	defer shutdownBackground(stopCleanup, cleanupDone, "outbox cleanup worker", logger)

	svc := shop.NewService(
		deps.repo,
		readCache,
		metrics.NewShopMetricsWithRegisterer(registry),
		cfg.RequestTimeout,
		logger.WithField("component", "shop"),
	)

	errCh := make(chan error, 3)

	httpLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen http %s: %w", cfg.HTTPAddr, err)
	}
	httpSrv := &http.Server{
		Handler:           httpapi.NewRouter(svc, logger.WithField("component", "http-api")),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	serveHTTP(httpSrv, httpLis, "webshop http", logger, errCh)
	defer shutdownHTTP(httpSrv, "webshop http", cfg.ShutdownTimeout, logger)

	if cfg.MetricsAddr != "" {
		metricsLis, err := net.Listen("tcp", cfg.MetricsAddr)
		if err != nil {
			return fmt.Errorf("listen metrics %s: %w", cfg.MetricsAddr, err)
		}
		metricsSrv := &http.Server{
			Handler:           newMetricsHandler(registry, healthHandler),
			ReadHeaderTimeout: readHeaderTimeout,
		}
		serveHTTP(metricsSrv, metricsLis, "metrics", logger, errCh)
		defer shutdownHTTP(metricsSrv, "metrics", cfg.ShutdownTimeout, logger)
	}

	if cfg.GRPCAddr != "" {
		grpcSrv, grpcHealth, err := startGRPC(cfg.GRPCAddr, registry, logger, errCh)
		if err != nil {
			return err
		}
		defer stopGRPC(grpcSrv, grpcHealth, cfg.ShutdownTimeout, logger)
	}

	logger.WithFields(log.Fields{
		"http_addr":      cfg.HTTPAddr,
		"storage_driver": cfg.StorageDriver,
		"version":        version.String(),
	}).Info("webshop started")

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping webshop")
		return ctx.Err()
	case err := <-errCh:
		logger.WithError(err).Error("server failed, stopping webshop")
		return err
	}
}

func startGRPC(addr string, registerer prometheus.Registerer, logger *log.Entry, errCh chan<- error) (*grpc.Server, *health.Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("listen grpc %s: %w", addr, err)
	}

	grpcSrv, grpcHealth := newGRPCServer(registerer, logger)
	grpcHealth.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	go func() {
		logger.WithField("addr", lis.Addr().String()).Info("grpc health server listening")
		if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- err
		}
	}()
	return grpcSrv, grpcHealth, nil
}

func closeQuietly(c io.Closer, name string, logger *log.Entry) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logger.WithError(err).Warnf("failed to close %s", name)
	}
}
