package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelbooking/internal/event"
	"hotelbooking/internal/orchestrator"
)

type fakeAcker struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAcker) Ack(tag uint64, multiple bool) error {
	f.acked = true
	return nil
}

func (f *fakeAcker) Nack(tag uint64, multiple, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func (f *fakeAcker) Reject(tag uint64, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

type fakeHandler struct {
	err  error
	seen []event.BookingCreated
}

func (f *fakeHandler) HandleBookingCreated(ctx context.Context, ev event.BookingCreated) error {
	f.seen = append(f.seen, ev)
	return f.err
}

func delivery(t *testing.T, acker *fakeAcker, body []byte) amqp.Delivery {
	t.Helper()
	return amqp.Delivery{Acknowledger: acker, DeliveryTag: 1, Body: body}
}

func bookingBody(t *testing.T) []byte {
	t.Helper()
	b, err := json.Marshal(event.BookingCreated{
		BookingID: "bk-1",
		UserID:    "u-1",
		HotelID:   "h-1",
		CheckIn:   "2026-09-01",
		CheckOut:  "2026-09-03",
		Nights:    2,
		BasePrice: 200,
	})
	require.NoError(t, err)
	return b
}

func TestHandleDeliveryAcksOnSuccess(t *testing.T) {
	h := &fakeHandler{}
	c := NewBookingConsumer(nil, h, "test")
	acker := &fakeAcker{}

	c.handleDelivery(context.Background(), delivery(t, acker, bookingBody(t)))

	assert.True(t, acker.acked)
	assert.False(t, acker.nacked)
	require.Len(t, h.seen, 1)
	assert.Equal(t, "bk-1", h.seen[0].BookingID)
}

func TestHandleDeliveryDeadLettersPoison(t *testing.T) {
	h := &fakeHandler{}
	c := NewBookingConsumer(nil, h, "test")
	acker := &fakeAcker{}

	c.handleDelivery(context.Background(), delivery(t, acker, []byte("{not json")))

	assert.True(t, acker.nacked)
	assert.False(t, acker.requeue, "poison must not be requeued")
	assert.Empty(t, h.seen, "poison never reaches the handler")
}

func TestHandleDeliveryRequeuesRetryable(t *testing.T) {
	h := &fakeHandler{err: &orchestrator.RetryableError{Err: errors.New("redis down")}}
	c := NewBookingConsumer(nil, h, "test")
	acker := &fakeAcker{}

	c.handleDelivery(context.Background(), delivery(t, acker, bookingBody(t)))

	assert.True(t, acker.nacked)
	assert.True(t, acker.requeue)
}

func TestHandleDeliveryDeadLettersPermanentError(t *testing.T) {
	h := &fakeHandler{err: errors.New("boom")}
	c := NewBookingConsumer(nil, h, "test")
	acker := &fakeAcker{}

	c.handleDelivery(context.Background(), delivery(t, acker, bookingBody(t)))

	assert.True(t, acker.nacked)
	assert.False(t, acker.requeue)
}
