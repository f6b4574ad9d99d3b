package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"restock-sync/internal/config"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// KafkaEventPublisher implements Publisher using a sarama sync producer
type KafkaEventPublisher struct {
	producer       sarama.SyncProducer
	logger         *zap.Logger
	topicOrders    string
	topicInventory string
	maxAttempts    int
	baseDelay      time.Duration
}

// NewPublisher returns a Kafka publisher when USE_KAFKA is on and the brokers answer,
// otherwise an in-memory publisher
func NewPublisher(cfg *config.Config, logger *zap.Logger) Publisher {
	if !cfg.UseKafka {
		logger.Info("Kafka disabled (USE_KAFKA=false), events kept in memory")
		return NewInMemoryEventPublisher(logger)
	}
	publisher, err := NewKafkaEventPublisher(cfg, logger)
	if err != nil {
		logger.Warn("Failed to create Kafka publisher, events kept in memory",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.Error(err),
		)
		return NewInMemoryEventPublisher(logger)
	}
	logger.Info("Kafka event publisher initialized",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic_orders", cfg.KafkaTopicOrders),
		zap.String("topic_inventory", cfg.KafkaTopicInventory),
	)
	return publisher
}

func NewKafkaEventPublisher(cfg *config.Config, logger *zap.Logger) (*KafkaEventPublisher, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.ClientID = cfg.KafkaClientID
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Retry.Max = cfg.KafkaRetries
	saramaCfg.Producer.Idempotent = true
	saramaCfg.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(cfg.KafkaBrokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return newKafkaEventPublisher(producer, cfg, logger), nil
}

func newKafkaEventPublisher(producer sarama.SyncProducer, cfg *config.Config, logger *zap.Logger) *KafkaEventPublisher {
	return &KafkaEventPublisher{
		producer:       producer,
		logger:         logger,
		topicOrders:    cfg.KafkaTopicOrders,
		topicInventory: cfg.KafkaTopicInventory,
		maxAttempts:    3,
		baseDelay:      100 * time.Millisecond,
	}
}

// Publish sends the event, retrying with exponential backoff
func (p *KafkaEventPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	message := p.buildMessage(event, payload)

	var lastErr error
	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled: %w", err)
		}

		partition, offset, err := p.producer.SendMessage(message)
		if err == nil {
			p.logger.Info("Event published to Kafka",
				zap.String("topic", message.Topic),
				zap.Int32("partition", partition),
				zap.Int64("offset", offset),
				zap.String("event_type", event.EventType()),
				zap.Int("attempt", attempt+1),
			)
			return nil
		}
		lastErr = err
		p.logger.Warn("Failed to publish event to Kafka, retrying",
			zap.String("topic", message.Topic),
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", p.maxAttempts),
		)

		if attempt < p.maxAttempts-1 {
			delay := p.baseDelay * time.Duration(1<<uint(attempt))
			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled during backoff: %w", ctx.Err())
			case <-time.After(delay):
			}
		}
	}

	return fmt.Errorf("failed to publish event to Kafka after %d attempts: %w", p.maxAttempts, lastErr)
}

func (p *KafkaEventPublisher) buildMessage(event Event, payload []byte) *sarama.ProducerMessage {
	message := &sarama.ProducerMessage{
		Topic: p.topicFor(event),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(event.EventType())},
			{Key: []byte("event-id"), Value: []byte(uuid.New().String())},
			{Key: []byte("timestamp"), Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		},
	}
	if key := event.PartitionKey(); key != "" {
		message.Key = sarama.StringEncoder(key)
	}
	return message
}

func (p *KafkaEventPublisher) topicFor(event Event) string {
	if event.Stream() == StreamOrders {
		return p.topicOrders
	}
	return p.topicInventory
}

func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
