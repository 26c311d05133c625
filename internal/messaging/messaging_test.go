package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"cineseat/internal/seats"
	"cineseat/pkg/logger"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeatEventProducer_SendsJSONKeyedBySession(t *testing.T) {
	mp := mocks.NewSyncProducer(t, nil)
	sessionID := uuid.New().String()
	mp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got seats.SeatEvent
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if got.Type != seats.EventSeatHeld || got.SessionID != sessionID || got.SeatCode != "M10" {
			return errors.New("unexpected payload")
		}
		return nil
	})

	p := NewSeatEventProducerWith(mp, "seat-events")
	err := p.PublishSeatEvent(context.Background(), seats.SeatEvent{
		Type: seats.EventSeatHeld, SessionID: sessionID, SeatCode: "M10", Status: seats.StatusHeld, Version: 2,
	})

	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestSeatEventProducer_ReportsBrokerFailure(t *testing.T) {
	mp := mocks.NewSyncProducer(t, nil)
	mp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewSeatEventProducerWith(mp, "seat-events")
	err := p.PublishSeatEvent(context.Background(), seats.SeatEvent{Type: seats.EventSeatSold})

	assert.True(t, errors.Is(err, sarama.ErrOutOfBrokers))
	require.NoError(t, p.Close())
}

func TestDecodePaymentEvent(t *testing.T) {
	cartID := uuid.New()

	event, err := DecodePaymentEvent([]byte(`{"type":"payment.succeeded","cart_id":"` + cartID.String() + `","payment_id":"pi_1"}`))
	require.NoError(t, err)
	assert.Equal(t, cartID, event.CartID)

	_, err = DecodePaymentEvent([]byte(`{"type":"payment.refunded","cart_id":"` + cartID.String() + `"}`))
	assert.True(t, errors.Is(err, ErrMalformedEvent))

	_, err = DecodePaymentEvent([]byte(`{"type":"payment.failed"}`))
	assert.True(t, errors.Is(err, ErrMalformedEvent))

	_, err = DecodePaymentEvent([]byte(`not json`))
	assert.True(t, errors.Is(err, ErrMalformedEvent))
}

type recordingHandler struct {
	failures int
	calls    int
	events   []PaymentEvent
}

func (h *recordingHandler) HandlePaymentEvent(_ context.Context, event PaymentEvent) error {
	h.calls++
	if h.calls <= h.failures {
		return errors.New("database unavailable")
	}
	h.events = append(h.events, event)
	return nil
}

func newTestHandler(inner PaymentHandler, retries int) *paymentGroupHandler {
	cfg := &ConsumerConfig{MaxRetries: retries, RetryBackoff: time.Millisecond}
	return newPaymentGroupHandler(inner, cfg, logger.Discard())
}

func TestPaymentHandler_RetriesTransientFailures(t *testing.T) {
	inner := &recordingHandler{failures: 2}
	h := newTestHandler(inner, 3)
	body, _ := json.Marshal(PaymentEvent{Type: PaymentSucceeded, CartID: uuid.New(), PaymentID: "pi_2"})

	err := h.process(context.Background(), &sarama.ConsumerMessage{Value: body})

	require.NoError(t, err)
	assert.Equal(t, 3, inner.calls)
	require.Len(t, inner.events, 1)
	assert.Equal(t, "pi_2", inner.events[0].PaymentID)
}

func TestPaymentHandler_GivesUpAfterMaxRetries(t *testing.T) {
	inner := &recordingHandler{failures: 10}
	h := newTestHandler(inner, 2)
	body, _ := json.Marshal(PaymentEvent{Type: PaymentFailed, CartID: uuid.New()})

	err := h.process(context.Background(), &sarama.ConsumerMessage{Value: body})

	assert.Error(t, err)
	assert.Equal(t, 3, inner.calls)
}

func TestPaymentHandler_DropsMalformedMessages(t *testing.T) {
	inner := &recordingHandler{}
	h := newTestHandler(inner, 3)

	err := h.process(context.Background(), &sarama.ConsumerMessage{Value: []byte(`{}`)})

	assert.NoError(t, err)
	assert.Zero(t, inner.calls)
}
