package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/webshop/internal/domain"
	"github.com/vladislavdragonenkov/webshop/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/webshop/internal/service/outbox"
)

func quietLogger() *log.Entry {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return log.NewEntry(logger)
}

// deadLetterValue собирает сообщение DLQ так же, как его публикует воркер outbox.
func deadLetterValue(t *testing.T, orderID string, payload string) []byte {
	t.Helper()

	dead, err := json.Marshal(outbox.DeadLetter{
		OutboxID:      "outbox-" + orderID,
		AggregateType: domain.AggregateTypeOrder,
		AggregateID:   orderID,
		EventType:     domain.EventTypeOrderPlaced,
		Payload:       json.RawMessage(payload),
		PublishError:  "kafka unavailable",
		FailedAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)

	value, err := json.Marshal(kafka.NewEnvelope(domain.OutboxMessage{
		ID:            "outbox-" + orderID,
		AggregateType: domain.AggregateTypeOrder,
		AggregateID:   orderID,
		EventType:     domain.EventTypeOrderPlaced,
		Payload:       dead,
	}, time.Now()))
	require.NoError(t, err)
	return value
}

func TestParseBrokers(t *testing.T) {
	require.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, parseBrokers(" broker-1:9092, ,broker-2:9092 "))
	require.Empty(t, parseBrokers(" , "))
}

func TestExtractReplayEvent(t *testing.T) {
	event, err := extractReplayEvent(&sarama.ConsumerMessage{Value: deadLetterValue(t, "7", `{"order_id":7}`)})
	require.NoError(t, err)
	require.Equal(t, domain.OutboxMessage{
		ID:            "outbox-7",
		AggregateType: domain.AggregateTypeOrder,
		AggregateID:   "7",
		EventType:     domain.EventTypeOrderPlaced,
		Payload:       []byte(`{"order_id":7}`),
	}, event)
}

func TestExtractReplayEvent_Unsupported(t *testing.T) {
	_, err := extractReplayEvent(&sarama.ConsumerMessage{Value: deadLetterValue(t, "7", `null`)})
	require.ErrorIs(t, err, errNoOriginalPayload)

	_, err = extractReplayEvent(&sarama.ConsumerMessage{Value: []byte(`not-json`)})
	require.ErrorContains(t, err, "decode dlq envelope")

	_, err = extractReplayEvent(&sarama.ConsumerMessage{Value: []byte(`{"id":"x","payload":"not-an-object"}`)})
	require.ErrorContains(t, err, "decode dead letter")
}

func TestFirstNonEmpty(t *testing.T) {
	require.Equal(t, "b", firstNonEmpty("", " ", "b", "c"))
	require.Empty(t, firstNonEmpty())
}

func TestReadConfig_FromFlags(t *testing.T) {
	withFlagArgs(t, []string{
		"-brokers=broker-1:9092,broker-2:9092",
		"-limit=5",
		"-execute",
		"-from-newest",
		"-idle-timeout=500ms",
	}, func() {
		cfg, err := readConfig()
		require.NoError(t, err)
		require.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.brokers)
		require.Equal(t, kafka.TopicDeadLetterQueue, cfg.sourceTopic)
		require.Equal(t, kafka.TopicOrderEvents, cfg.targetTopic)
		require.Equal(t, 5, cfg.limit)
		require.True(t, cfg.execute)
		require.True(t, cfg.fromNewest)
		require.Equal(t, 500*time.Millisecond, cfg.idleTimeout)
	})
}

func TestReadConfig_BrokersFromEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "env-broker:9092")
	withFlagArgs(t, nil, func() {
		cfg, err := readConfig()
		require.NoError(t, err)
		require.Equal(t, []string{"env-broker:9092"}, cfg.brokers)
	})
}

func TestReadConfig_ValidationErrors(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "no brokers", args: nil, wantErr: "kafka brokers are required"},
		{name: "empty target", args: []string{"-brokers=b:9092", "-target-topic= "}, wantErr: "target-topic is required"},
		{name: "same topics", args: []string{"-brokers=b:9092", "-target-topic=" + kafka.TopicDeadLetterQueue}, wantErr: "must differ"},
		{name: "zero limit", args: []string{"-brokers=b:9092", "-limit=0"}, wantErr: "limit must be > 0"},
		{name: "zero idle", args: []string{"-brokers=b:9092", "-idle-timeout=0s"}, wantErr: "idle-timeout must be > 0"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			withFlagArgs(t, tc.args, func() {
				_, err := readConfig()
				require.ErrorContains(t, err, tc.wantErr)
			})
		})
	}
}

func TestProcessPartition_DryRun(t *testing.T) {
	client := &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 0, newest: 2}}}
	consumer := &stubPartitionConsumerSource{
		consumers: map[int32]partitionConsumer{
			0: closedPartitionConsumer([]*sarama.ConsumerMessage{
				{Partition: 0, Offset: 0, Value: deadLetterValue(t, "1", `{"order_id":1}`)},
				{Partition: 0, Offset: 1, Value: []byte(`garbage`)},
			}),
		},
	}
	cfg := config{
		sourceTopic: kafka.TopicDeadLetterQueue,
		targetTopic: kafka.TopicOrderEvents,
		idleTimeout: 20 * time.Millisecond,
	}

	stats, err := processPartition(context.Background(), replayDependencies{client: client, consumer: consumer}, cfg, 0, 10, quietLogger())
	require.NoError(t, err)
	require.Equal(t, partitionStats{processed: 2, replayed: 1, skipped: 1}, stats)
	require.Equal(t, []consumeCall{{partition: 0, offset: 0}}, consumer.calls)
}

func TestProcessPartition_ExecuteRepublishesThroughOutboxPublisher(t *testing.T) {
	client := &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 3, newest: 5}}}
	consumer := &stubPartitionConsumerSource{
		consumers: map[int32]partitionConsumer{
			0: closedPartitionConsumer([]*sarama.ConsumerMessage{
				{Partition: 0, Offset: 4, Value: deadLetterValue(t, "9", `{"order_id":9}`)},
			}),
		},
	}

	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != kafka.TopicOrderEvents {
			return fmt.Errorf("unexpected topic %s", msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != "9" {
			return fmt.Errorf("unexpected key %s", key)
		}
		value, _ := msg.Value.Encode()
		var envelope kafka.Envelope
		if err := json.Unmarshal(value, &envelope); err != nil {
			return err
		}
		if envelope.ID != "outbox-9" || string(envelope.Payload) != `{"order_id":9}` {
			return fmt.Errorf("unexpected envelope %+v", envelope)
		}
		return nil
	})
	producer := kafka.NewProducerWithClient(mockProducer, quietLogger())
	defer func() { require.NoError(t, producer.Close()) }()

	deps := replayDependencies{
		client:    client,
		consumer:  consumer,
		publisher: kafka.NewOutboxPublisher(producer, kafka.TopicOrderEvents),
	}
	cfg := config{
		sourceTopic: kafka.TopicDeadLetterQueue,
		targetTopic: kafka.TopicOrderEvents,
		execute:     true,
		fromNewest:  true,
		idleTimeout: 20 * time.Millisecond,
	}

	stats, err := processPartition(context.Background(), deps, cfg, 0, 1, quietLogger())
	require.NoError(t, err)
	require.Equal(t, 1, stats.replayed)
	require.Equal(t, []consumeCall{{partition: 0, offset: 4}}, consumer.calls)
}

func TestProcessPartition_ErrorBranches(t *testing.T) {
	cfg := config{
		sourceTopic: kafka.TopicDeadLetterQueue,
		targetTopic: kafka.TopicOrderEvents,
		execute:     true,
		idleTimeout: 20 * time.Millisecond,
	}
	logger := quietLogger()

	offsetErr := &stubOffsetClient{offsetErr: map[int32]error{0: errors.New("offset")}}
	_, err := processPartition(context.Background(), replayDependencies{client: offsetErr, consumer: &stubPartitionConsumerSource{}}, cfg, 0, 1, logger)
	require.ErrorContains(t, err, "get oldest offset")

	client := &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 0, newest: 2}}}
	consumeErr := &stubPartitionConsumerSource{consumeErr: errors.New("consume")}
	_, err = processPartition(context.Background(), replayDependencies{client: client, consumer: consumeErr}, cfg, 0, 1, logger)
	require.ErrorContains(t, err, "consume partition")

	pcWithErr := &stubPartitionConsumer{
		messages: make(chan *sarama.ConsumerMessage),
		errors:   make(chan *sarama.ConsumerError, 1),
	}
	pcWithErr.errors <- &sarama.ConsumerError{Err: errors.New("consumer boom")}
	deps := replayDependencies{client: client, consumer: &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{0: pcWithErr}}}
	_, err = processPartition(context.Background(), deps, cfg, 0, 1, logger)
	require.ErrorContains(t, err, "consumer error")

	failing := &stubPublisher{err: errors.New("send fail")}
	deps = replayDependencies{
		client: client,
		consumer: &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{
			0: closedPartitionConsumer([]*sarama.ConsumerMessage{{Offset: 0, Value: deadLetterValue(t, "1", `{"order_id":1}`)}}),
		}},
		publisher: failing,
	}
	_, err = processPartition(context.Background(), deps, cfg, 0, 1, logger)
	require.ErrorContains(t, err, "publish replay message")
	require.Len(t, failing.events, 1)
}

func TestProcessPartition_EmptyRangeIdleAndContext(t *testing.T) {
	cfg := config{sourceTopic: kafka.TopicDeadLetterQueue, targetTopic: kafka.TopicOrderEvents, idleTimeout: 10 * time.Millisecond}
	logger := quietLogger()

	empty := &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 4, newest: 4}}}
	consumer := &stubPartitionConsumerSource{}
	stats, err := processPartition(context.Background(), replayDependencies{client: empty, consumer: consumer}, cfg, 0, 1, logger)
	require.NoError(t, err)
	require.Zero(t, stats.processed)
	require.Empty(t, consumer.calls)

	client := &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 0, newest: 2}}}
	idle := &stubPartitionConsumer{
		messages: make(chan *sarama.ConsumerMessage),
		errors:   make(chan *sarama.ConsumerError),
	}
	deps := replayDependencies{client: client, consumer: &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{0: idle}}}
	stats, err = processPartition(context.Background(), deps, cfg, 0, 1, logger)
	require.NoError(t, err)
	require.Zero(t, stats.processed)
	require.True(t, idle.closed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	canceled := &stubPartitionConsumer{
		messages: make(chan *sarama.ConsumerMessage),
		errors:   make(chan *sarama.ConsumerError),
	}
	deps = replayDependencies{client: client, consumer: &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{0: canceled}}}
	_, err = processPartition(ctx, deps, cfg, 0, 1, logger)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunReplay(t *testing.T) {
	cfg := config{sourceTopic: kafka.TopicDeadLetterQueue, targetTopic: kafka.TopicOrderEvents, limit: 2, idleTimeout: 20 * time.Millisecond}
	logger := quietLogger()

	require.Error(t, runReplay(context.Background(), cfg, replayDependencies{}, logger))

	execCfg := cfg
	execCfg.execute = true
	require.ErrorContains(t,
		runReplay(context.Background(), execCfg, replayDependencies{client: &stubOffsetClient{}, consumer: &stubPartitionConsumerSource{}}, logger),
		"publisher is required")

	partitionsErr := &stubOffsetClient{partitionsErr: errors.New("metadata")}
	require.ErrorContains(t,
		runReplay(context.Background(), cfg, replayDependencies{client: partitionsErr, consumer: &stubPartitionConsumerSource{}}, logger),
		"get partitions")

	require.NoError(t, runReplay(context.Background(), cfg, replayDependencies{client: &stubOffsetClient{}, consumer: &stubPartitionConsumerSource{}}, logger))

	// Лимит 2 исчерпывается на партиции 0, партиция 1 не читается.
	client := &stubOffsetClient{
		partitions: []int32{1, 0},
		offsets: map[int32]offsetRange{
			0: {oldest: 0, newest: 2},
			1: {oldest: 0, newest: 1},
		},
	}
	consumer := &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{
		0: closedPartitionConsumer([]*sarama.ConsumerMessage{
			{Partition: 0, Offset: 0, Value: deadLetterValue(t, "1", `{"order_id":1}`)},
			{Partition: 0, Offset: 1, Value: deadLetterValue(t, "2", `{"order_id":2}`)},
		}),
		1: closedPartitionConsumer([]*sarama.ConsumerMessage{
			{Partition: 1, Offset: 0, Value: deadLetterValue(t, "3", `{"order_id":3}`)},
		}),
	}}
	publisher := &stubPublisher{}
	require.NoError(t, runReplay(context.Background(), execCfg, replayDependencies{client: client, consumer: consumer, publisher: publisher}, logger))
	require.Equal(t, []string{"1", "2"}, publisher.aggregateIDs())
	require.Equal(t, []consumeCall{{partition: 0, offset: 0}}, consumer.calls)
}

func TestRun_UsesDependencies(t *testing.T) {
	original := newReplayDependencies
	defer func() { newReplayDependencies = original }()

	closed := false
	newReplayDependencies = func(config, *log.Entry) (replayDependencies, error) {
		return replayDependencies{
			client:   &stubOffsetClient{},
			consumer: &stubPartitionConsumerSource{},
			closeFn:  func() { closed = true },
		}, nil
	}
	cfg := config{sourceTopic: kafka.TopicDeadLetterQueue, targetTopic: kafka.TopicOrderEvents, limit: 1, idleTimeout: 10 * time.Millisecond}
	require.NoError(t, run(context.Background(), cfg))
	require.True(t, closed)

	newReplayDependencies = func(config, *log.Entry) (replayDependencies, error) {
		return replayDependencies{}, errors.New("deps failed")
	}
	require.EqualError(t, run(context.Background(), cfg), "deps failed")
}

func TestFailExits(t *testing.T) {
	if os.Getenv("DLQ_TEST_FAIL_EXIT") == "1" {
		fail("forced failure %d", 42)
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestFailExits")
	cmd.Env = append(os.Environ(), "DLQ_TEST_FAIL_EXIT=1")
	err := cmd.Run()
	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.NotZero(t, exitErr.ExitCode())
}

func withFlagArgs(t *testing.T, args []string, fn func()) {
	t.Helper()

	oldArgs := os.Args
	oldCommandLine := flag.CommandLine

	os.Args = append([]string{"dlq-reprocess"}, args...)
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	flag.CommandLine = fs

	defer func() {
		os.Args = oldArgs
		flag.CommandLine = oldCommandLine
	}()

	fn()
}

type offsetRange struct {
	oldest int64
	newest int64
}

type stubOffsetClient struct {
	partitions    []int32
	partitionsErr error
	offsets       map[int32]offsetRange
	offsetErr     map[int32]error
}

func (s *stubOffsetClient) GetOffset(_ string, partition int32, marker int64) (int64, error) {
	if err, ok := s.offsetErr[partition]; ok {
		return 0, err
	}

	r := s.offsets[partition]
	switch marker {
	case sarama.OffsetOldest:
		return r.oldest, nil
	case sarama.OffsetNewest:
		return r.newest, nil
	default:
		return 0, fmt.Errorf("unsupported marker %d", marker)
	}
}

func (s *stubOffsetClient) Partitions(string) ([]int32, error) {
	if s.partitionsErr != nil {
		return nil, s.partitionsErr
	}
	return append([]int32(nil), s.partitions...), nil
}

func (s *stubOffsetClient) Close() error { return nil }

type consumeCall struct {
	partition int32
	offset    int64
}

type stubPartitionConsumerSource struct {
	consumers  map[int32]partitionConsumer
	consumeErr error
	calls      []consumeCall
}

func (s *stubPartitionConsumerSource) ConsumePartition(_ string, partition int32, offset int64) (partitionConsumer, error) {
	s.calls = append(s.calls, consumeCall{partition: partition, offset: offset})
	if s.consumeErr != nil {
		return nil, s.consumeErr
	}
	pc, ok := s.consumers[partition]
	if !ok {
		return nil, fmt.Errorf("partition %d not configured", partition)
	}
	return pc, nil
}

func (s *stubPartitionConsumerSource) Close() error { return nil }

type stubPartitionConsumer struct {
	messages chan *sarama.ConsumerMessage
	errors   chan *sarama.ConsumerError
	closed   bool
}

func (s *stubPartitionConsumer) Messages() <-chan *sarama.ConsumerMessage { return s.messages }
func (s *stubPartitionConsumer) Errors() <-chan *sarama.ConsumerError     { return s.errors }
func (s *stubPartitionConsumer) Close() error {
	s.closed = true
	return nil
}

func closedPartitionConsumer(messages []*sarama.ConsumerMessage) *stubPartitionConsumer {
	msgCh := make(chan *sarama.ConsumerMessage, len(messages))
	for _, msg := range messages {
		msgCh <- msg
	}
	close(msgCh)
	// Канал ошибок не закрыт: закрытый канал выигрывал бы select у сообщений.
	return &stubPartitionConsumer{messages: msgCh, errors: make(chan *sarama.ConsumerError)}
}

type stubPublisher struct {
	err    error
	events []domain.OutboxMessage
}

func (s *stubPublisher) Publish(_ context.Context, event domain.OutboxMessage) error {
	s.events = append(s.events, event)
	return s.err
}

func (s *stubPublisher) aggregateIDs() []string {
	ids := make([]string, 0, len(s.events))
	for _, e := range s.events {
		ids = append(ids, e.AggregateID)
	}
	return ids
}
