// Package consumer runs the AMQP delivery loops feeding the pipeline.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"hotelbooking/internal/event"
	"hotelbooking/internal/orchestrator"
	"hotelbooking/pkg/log"
)

// BookingHandler processes one decoded booking event. A nil error acks the
// delivery; a retryable error nacks it back to the queue.
type BookingHandler interface {
	HandleBookingCreated(ctx context.Context, ev event.BookingCreated) error
}

// ChannelOpener hands out consumer channels with prefetch applied.
type ChannelOpener interface {
	NewConsumerChannel() (*amqp.Channel, error)
}

// BookingConsumer pulls booking.created deliveries and drives the handler.
type BookingConsumer struct {
	opener  ChannelOpener
	handler BookingHandler
	name    string
}

// NewBookingConsumer wires a consumer; name tags the AMQP consumer for
// visibility in the broker UI.
func NewBookingConsumer(opener ChannelOpener, handler BookingHandler, name string) *BookingConsumer {
	if name == "" {
		name = "booking-orchestrator"
	}
	return &BookingConsumer{opener: opener, handler: handler, name: name}
}

// Run consumes until the context is cancelled or the channel closes.
// The caller restarts it after a connection loss.
func (c *BookingConsumer) Run(ctx context.Context) error {
	ch, err := c.opener.NewConsumerChannel()
	if err != nil {
		return fmt.Errorf("open consumer channel: %w", err)
	}
	defer ch.Close()

	deliveries, err := ch.ConsumeWithContext(ctx, event.QueueBookingCreated, c.name, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", event.QueueBookingCreated, err)
	}

	log.WithField("queue", event.QueueBookingCreated).Info("Booking consumer started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			// prefetch caps unacked deliveries, bounding these workers
			go c.handleDelivery(ctx, d)
		}
	}
}

func (c *BookingConsumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	var ev event.BookingCreated
	if err := json.Unmarshal(d.Body, &ev); err != nil {
		// poison message: reject without requeue so it dead-letters
		log.WithError(err).Error("Undecodable booking event, dead-lettering")
		_ = d.Nack(false, false)
		return
	}

	err := c.handler.HandleBookingCreated(ctx, ev)
	if err == nil {
		_ = d.Ack(false)
		return
	}

	if orchestrator.IsRetryable(err) {
		log.WithFields(map[string]interface{}{
			"booking_id": ev.BookingID,
			"error":      err.Error(),
		}).Warn("Retryable failure, requeueing booking event")
		_ = d.Nack(false, true)
		return
	}

	// non-retryable handler errors are terminal, never redelivered
	log.WithFields(map[string]interface{}{
		"booking_id": ev.BookingID,
		"error":      err.Error(),
	}).Error("Booking event failed permanently")
	_ = d.Nack(false, false)
}
