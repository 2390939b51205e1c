package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/fleetroad/pricingservice/internal/metrics"
	"github.com/fleetroad/pricingservice/internal/retry"
)

// SaramaPublisher publishes events to a Kafka topic through a synchronous producer.
// Messages are keyed by aggregate so events for one rule or fleet stay ordered.
type SaramaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	retry    retry.Config
	logger   *zap.Logger
}

// NewSaramaPublisher connects a sync producer to brokers.
func NewSaramaPublisher(brokers []string, topic string, logger *zap.Logger) (*SaramaPublisher, error) {
	config := sarama.NewConfig()
	config.ClientID = "pricing-service"
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1
	config.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return NewSaramaPublisherFromProducer(producer, topic, logger), nil
}

// NewSaramaPublisherFromProducer wraps an existing producer.
func NewSaramaPublisherFromProducer(producer sarama.SyncProducer, topic string, logger *zap.Logger) *SaramaPublisher {
	return &SaramaPublisher{
		producer: producer,
		topic:    topic,
		retry:    retry.DefaultConfig(),
		logger:   logger,
	}
}

// WithRetry overrides the publish retry policy.
func (p *SaramaPublisher) WithRetry(cfg retry.Config) *SaramaPublisher {
	p.retry = cfg
	return p
}

// Publish publishes an event
func (p *SaramaPublisher) Publish(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.Aggregate),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
			{Key: []byte("event_id"), Value: []byte(event.ID)},
		},
	}

	var partition int32
	var offset int64
	err = retry.Do(ctx, p.retry, p.logger, func() error {
		var sendErr error
		partition, offset, sendErr = p.producer.SendMessage(msg)
		if sendErr != nil && !isRetryable(sendErr) {
			return retry.Permanent(sendErr)
		}
		return sendErr
	})
	metrics.RecordEventPublished(event.Type, err)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}

	p.logger.Debug("Event published",
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
		zap.String("topic", p.topic),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
	return nil
}

// PublishBatch publishes multiple events in order
func (p *SaramaPublisher) PublishBatch(ctx context.Context, events []*Event) error {
	return publishEach(ctx, p, events)
}

// Close flushes and closes the producer
func (p *SaramaPublisher) Close() error {
	return p.producer.Close()
}

var retryableKafkaErrors = []error{
	sarama.ErrLeaderNotAvailable,
	sarama.ErrNotLeaderForPartition,
	sarama.ErrRequestTimedOut,
	sarama.ErrNotEnoughReplicas,
	sarama.ErrNotEnoughReplicasAfterAppend,
	sarama.ErrOutOfBrokers,
}

func isRetryable(err error) bool {
	for _, target := range retryableKafkaErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return retry.IsRetryableError(err)
}
