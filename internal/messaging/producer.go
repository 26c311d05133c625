package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cineseat/internal/seats"
	"cineseat/pkg/logger"

	"github.com/IBM/sarama"
)

// ProducerConfig contains configuration for the seat event producer
type ProducerConfig struct {
	Brokers          []string
	ClientID         string
	Topic            string
	RetryMax         int
	Timeout          time.Duration
	RequiredAcks     sarama.RequiredAcks
	CompressionType  sarama.CompressionCodec
	IdempotentWrites bool
}

func DefaultProducerConfig() *ProducerConfig {
	return &ProducerConfig{
		Brokers:          []string{"localhost:9092"},
		ClientID:         "cineseat",
		Topic:            "seat-events",
		RetryMax:         3,
		Timeout:          10 * time.Second,
		RequiredAcks:     sarama.WaitForAll,
		CompressionType:  sarama.CompressionSnappy,
		IdempotentWrites: true,
	}
}

// SeatEventProducer publishes committed seat transitions keyed by session, so every
// consumer sees one session's events in order.
type SeatEventProducer struct {
	producer sarama.SyncProducer
	topic    string
	log      *logger.Logger
}

func NewSeatEventProducer(cfg *ProducerConfig) (*SeatEventProducer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.ClientID = cfg.ClientID
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = cfg.RequiredAcks
	saramaConfig.Producer.Compression = cfg.CompressionType
	saramaConfig.Producer.Retry.Max = cfg.RetryMax
	saramaConfig.Producer.Timeout = cfg.Timeout
	saramaConfig.Producer.Idempotent = cfg.IdempotentWrites
	if cfg.IdempotentWrites {
		saramaConfig.Net.MaxOpenRequests = 1
	}
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return NewSeatEventProducerWith(producer, cfg.Topic), nil
}

// NewSeatEventProducerWith wraps an existing producer.
func NewSeatEventProducerWith(producer sarama.SyncProducer, topic string) *SeatEventProducer {
	return &SeatEventProducer{
		producer: producer,
		topic:    topic,
		log:      logger.GetDefault().WithComponent("seat-events"),
	}
}

func (p *SeatEventProducer) PublishSeatEvent(ctx context.Context, event seats.SeatEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal seat event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.SessionID),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
			{Key: []byte("seat_code"), Value: []byte(event.SeatCode)},
			{Key: []byte("producer"), Value: []byte("cineseat")},
		},
		Timestamp: event.OccurredAt,
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to send seat event: %w", err)
	}

	p.log.DebugWithContext(ctx, "Seat event published", map[string]interface{}{
		"type":      event.Type,
		"partition": partition,
		"offset":    offset,
	})
	return nil
}

func (p *SeatEventProducer) Close() error {
	if p.producer == nil {
		return nil
	}
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	return nil
}
