package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"cineseat/pkg/logger"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

const (
	PaymentSucceeded = "payment.succeeded"
	PaymentFailed    = "payment.failed"
	PaymentCanceled  = "payment.canceled"
)

// ErrMalformedEvent marks messages that can never be processed. They are committed and dropped.
var ErrMalformedEvent = errors.New("malformed payment event")

type PaymentEvent struct {
	Type      string    `json:"type"`
	CartID    uuid.UUID `json:"cart_id"`
	PaymentID string    `json:"payment_id"`
	// AmountCents is what the provider charged. Zero when the provider does not say.
	AmountCents int64     `json:"amount_cents"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func (e PaymentEvent) validate() error {
	switch e.Type {
	case PaymentSucceeded, PaymentFailed, PaymentCanceled:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrMalformedEvent, e.Type)
	}
	if e.CartID == uuid.Nil {
		return fmt.Errorf("%w: missing cart id", ErrMalformedEvent)
	}
	return nil
}

// PaymentHandler settles a cart from a payment outcome. Handlers must be idempotent:
// delivery is at least once.
type PaymentHandler interface {
	HandlePaymentEvent(ctx context.Context, event PaymentEvent) error
}

type ConsumerConfig struct {
	Brokers           []string
	ClientID          string
	GroupID           string
	Topics            []string
	SessionTimeout    time.Duration
	Heartbeat         time.Duration
	MaxProcessingTime time.Duration
	OffsetOldest      bool
	MaxRetries        int
	RetryBackoff      time.Duration
}

func DefaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		Brokers:           []string{"localhost:9092"},
		ClientID:          "cineseat",
		GroupID:           "cineseat-checkout",
		Topics:            []string{"payment-events"},
		SessionTimeout:    30 * time.Second,
		Heartbeat:         3 * time.Second,
		MaxProcessingTime: time.Minute,
		OffsetOldest:      true,
		MaxRetries:        3,
		RetryBackoff:      time.Second,
	}
}

type PaymentConsumer struct {
	group   sarama.ConsumerGroup
	config  *ConsumerConfig
	handler *paymentGroupHandler
	log     *logger.Logger
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewPaymentConsumer(cfg *ConsumerConfig, handler PaymentHandler) (*PaymentConsumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.ClientID = cfg.ClientID
	saramaConfig.Consumer.Group.Session.Timeout = cfg.SessionTimeout
	saramaConfig.Consumer.Group.Heartbeat.Interval = cfg.Heartbeat
	saramaConfig.Consumer.MaxProcessingTime = cfg.MaxProcessingTime
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
	saramaConfig.Consumer.Offsets.AutoCommit.Interval = time.Second
	if cfg.OffsetOldest {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	}

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	log := logger.GetDefault().WithComponent("payment-consumer")
	return &PaymentConsumer{
		group:   group,
		config:  cfg,
		handler: newPaymentGroupHandler(handler, cfg, log),
		log:     log,
	}, nil
}

func (pc *PaymentConsumer) Start(ctx context.Context) {
	ctx, pc.cancel = context.WithCancel(ctx)
	pc.log.Info("Starting payment consumer", "topics", pc.config.Topics, "group", pc.config.GroupID)

	pc.wg.Add(2)
	go func() {
		defer pc.wg.Done()
		for err := range pc.group.Errors() {
			pc.log.ErrorWithContext(ctx, "Consumer group error", err, nil)
		}
	}()
	go func() {
		defer pc.wg.Done()
		for ctx.Err() == nil {
			if err := pc.group.Consume(ctx, pc.config.Topics, pc.handler); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				pc.log.ErrorWithContext(ctx, "Error consuming payment events", err, nil)
				time.Sleep(time.Second)
			}
		}
	}()
}

func (pc *PaymentConsumer) Stop() error {
	if pc.cancel != nil {
		pc.cancel()
	}
	err := pc.group.Close()
	pc.wg.Wait()
	if err != nil {
		return fmt.Errorf("failed to close consumer group: %w", err)
	}
	pc.log.Info("Payment consumer stopped")
	return nil
}

type paymentGroupHandler struct {
	handler    PaymentHandler
	maxRetries int
	backoff    time.Duration
	log        *logger.Logger
}

func newPaymentGroupHandler(handler PaymentHandler, cfg *ConsumerConfig, log *logger.Logger) *paymentGroupHandler {
	return &paymentGroupHandler{
		handler:    handler,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.RetryBackoff,
		log:        log,
	}
}

func (h *paymentGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *paymentGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *paymentGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.process(session.Context(), message); err != nil {
				// Left unmarked so the next session redelivers it.
				h.log.ErrorWithContext(session.Context(), "Failed to process payment event", err, map[string]interface{}{
					"partition": message.Partition,
					"offset":    message.Offset,
				})
				continue
			}
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

// process decodes and applies one message. Malformed messages return nil so they are
// committed instead of redelivered forever.
func (h *paymentGroupHandler) process(ctx context.Context, message *sarama.ConsumerMessage) error {
	event, err := DecodePaymentEvent(message.Value)
	if err != nil {
		h.log.ErrorWithContext(ctx, "Dropping malformed payment event", err, map[string]interface{}{
			"partition": message.Partition,
			"offset":    message.Offset,
		})
		return nil
	}
	h.log.LogPaymentEvent(ctx, event.Type, event.CartID.String(), event.PaymentID)

	for attempt := 0; ; attempt++ {
		err := h.handler.HandlePaymentEvent(ctx, event)
		if err == nil {
			return nil
		}
		if attempt >= h.maxRetries {
			return err
		}

		delay := h.backoff * time.Duration(1<<attempt)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func DecodePaymentEvent(data []byte) (PaymentEvent, error) {
	var event PaymentEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return PaymentEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if err := event.validate(); err != nil {
		return PaymentEvent{}, err
	}
	return event, nil
}
