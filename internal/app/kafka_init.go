package app

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/webshop/internal/domain"
	"github.com/vladislavdragonenkov/webshop/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/webshop/internal/service/outbox"
)

const kafkaClientID = "webshop"

// initKafkaProducer возвращает nil, nil, если брокеры не заданы.
func initKafkaProducer(brokers []string, logger *log.Entry) (*kafka.Producer, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokers, kafkaClientID, logger.WithField("component", "kafka-producer"))
	if err != nil {
		return nil, err
	}

	logger.WithField("brokers", brokers).Info("kafka producer initialized")
	return producer, nil
}

func closeKafkaProducer(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
		return
	}
	logger.Info("kafka producer closed")
}

// startOutboxWorker запускает доставку order.placed в Kafka.
func startOutboxWorker(
	ctx context.Context,
	cfg Config,
	repo domain.OutboxRepository,
	producer *kafka.Producer,
	registerer prometheus.Registerer,
	logger *log.Entry,
) (context.CancelFunc, <-chan struct{}) {
	worker := outbox.NewWorker(
		repo,
		kafka.NewOutboxPublisher(producer, kafka.TopicOrderEvents),
		kafka.NewOutboxPublisher(producer, kafka.TopicDeadLetterQueue),
		outbox.Config{
			PollInterval:   cfg.OutboxPollInterval,
			BatchSize:      cfg.OutboxBatchSize,
			MaxAttempts:    cfg.OutboxMaxAttempts,
			RetryBaseDelay: cfg.OutboxRetryDelay,
			Registerer:     registerer,
		},
		logger.WithField("component", "outbox-worker"),
	)

	return startBackground(ctx, worker.Run)
}

// startOutboxCleanup запускает удаление обработанных сообщений outbox.
func startOutboxCleanup(
	ctx context.Context,
	cfg Config,
	repo domain.OutboxRepository,
	registerer prometheus.Registerer,
	logger *log.Entry,
) (context.CancelFunc, <-chan struct{}) {
	worker := outbox.NewCleanupWorker(repo,
		outbox.WithCleanupInterval(cfg.OutboxCleanupInterval),
		outbox.WithRetention(cfg.OutboxRetention),
		outbox.WithCleanupRegisterer(registerer),
		outbox.WithCleanupLogger(logger.WithField("component", "outbox-cleanup-worker")),
	)
	return startBackground(ctx, worker.Run)
}

// startBackground запускает run в отдельной горутине. Возвращает функцию
// остановки и канал, закрывающийся после выхода run.
func startBackground(ctx context.Context, run func(context.Context)) (context.CancelFunc, <-chan struct{}) {
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		run(runCtx)
	}()
	return cancel, done
}

func shutdownBackground(cancel context.CancelFunc, done <-chan struct{}, name string, logger *log.Entry) {
	if cancel == nil {
		return
	}
	cancel()
	if done != nil {
		<-done
	}
	logger.Infof("%s stopped", name)
}
