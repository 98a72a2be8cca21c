// Package notifier turns booking outcomes into user-facing notifications.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"hotelbooking/internal/event"
	"hotelbooking/pkg/log"
)

// UserSender pushes a payload to a user's live connections.
type UserSender interface {
	SendToUser(ctx context.Context, userID string, payload []byte) error
}

// ChannelOpener hands out consumer channels with prefetch applied.
type ChannelOpener interface {
	NewConsumerChannel() (*amqp.Channel, error)
}

// Notification is the websocket payload built from a booking outcome.
type Notification struct {
	Type               string   `json:"type"`
	BookingID          string   `json:"bookingId"`
	Status             string   `json:"status"`
	UserID             string   `json:"userId"`
	HotelID            string   `json:"hotelId"`
	FinalPrice         float64  `json:"finalPrice"`
	DiscountPercentage float64  `json:"discountPercentage"`
	Message            string   `json:"message"`
	Recommendations    []string `json:"recommendations,omitempty"`
	RejectionReason    string   `json:"rejectionReason,omitempty"`
	Timestamp          int64    `json:"timestamp"`
}

// Listener consumes booking outcomes and fans them out as notifications.
type Listener struct {
	opener ChannelOpener
	sender UserSender
	name   string
}

// NewListener wires a listener.
func NewListener(opener ChannelOpener, sender UserSender, name string) *Listener {
	if name == "" {
		name = "booking-notifier"
	}
	return &Listener{opener: opener, sender: sender, name: name}
}

// Run consumes until the context is cancelled or the channel closes.
func (l *Listener) Run(ctx context.Context) error {
	ch, err := l.opener.NewConsumerChannel()
	if err != nil {
		return fmt.Errorf("open consumer channel: %w", err)
	}
	defer ch.Close()

	deliveries, err := ch.ConsumeWithContext(ctx, event.QueueNotification, l.name, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", event.QueueNotification, err)
	}

	log.WithField("queue", event.QueueNotification).Info("Notification listener started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			l.handleDelivery(ctx, d)
		}
	}
}

func (l *Listener) handleDelivery(ctx context.Context, d amqp.Delivery) {
	var ev event.BookingProcessed
	if err := json.Unmarshal(d.Body, &ev); err != nil {
		log.WithError(err).Error("Undecodable booking outcome, dropping")
		_ = d.Ack(false)
		return
	}

	l.HandleBookingProcessed(ctx, ev)
	_ = d.Ack(false)
}

// HandleBookingProcessed sends the email/push stubs and the websocket
// notification for one outcome. Notifications are best-effort, a send
// failure never fails the delivery.
func (l *Listener) HandleBookingProcessed(ctx context.Context, ev event.BookingProcessed) {
	log.WithFields(map[string]interface{}{
		"booking_id": ev.BookingID,
		"user_id":    ev.UserID,
		"status":     ev.Status,
	}).Info("Booking outcome received")

	if ev.Status == event.StatusConfirmed {
		l.sendConfirmationEmail(ev)
		l.sendConfirmationPush(ev)
	} else {
		l.sendRejectionEmail(ev)
	}

	payload, err := json.Marshal(BuildNotification(ev))
	if err != nil {
		log.WithError(err).Error("Failed to marshal notification")
		return
	}

	if err := l.sender.SendToUser(ctx, ev.UserID, payload); err != nil {
		log.WithFields(map[string]interface{}{
			"user_id": ev.UserID,
			"error":   err.Error(),
		}).Warn("WebSocket notification not delivered")
		return
	}

	log.WithField("user_id", ev.UserID).Info("WebSocket notification published")
}

// BuildNotification maps a booking outcome onto the websocket payload.
func BuildNotification(ev event.BookingProcessed) Notification {
	n := Notification{
		Type:               "BOOKING_UPDATE",
		BookingID:          ev.BookingID,
		Status:             ev.Status,
		UserID:             ev.UserID,
		HotelID:            ev.HotelID,
		FinalPrice:         ev.FinalPrice,
		DiscountPercentage: ev.DiscountPercentage,
		Timestamp:          time.Now().UnixMilli(),
	}

	if ev.Status == event.StatusConfirmed {
		n.Message = fmt.Sprintf("Your booking %s is confirmed! Final price: %.2f (you saved %.0f%%)",
			ev.BookingID, ev.FinalPrice, ev.DiscountPercentage)
		n.Recommendations = ev.Recommendations
	} else {
		n.Message = fmt.Sprintf("Booking %s could not be confirmed. Reason: %s",
			ev.BookingID, ev.RejectionReason)
		n.RejectionReason = ev.RejectionReason
	}

	return n
}

// Email and push delivery are stubbed out to the log until the providers
// are wired up.

func (l *Listener) sendConfirmationEmail(ev event.BookingProcessed) {
	log.WithFields(map[string]interface{}{
		"booking_id":  ev.BookingID,
		"email":       ev.CustomerEmail,
		"final_price": ev.FinalPrice,
		"discount":    ev.DiscountPercentage,
	}).Info("Confirmation email sent")
}

func (l *Listener) sendConfirmationPush(ev event.BookingProcessed) {
	log.WithFields(map[string]interface{}{
		"booking_id": ev.BookingID,
		"user_id":    ev.UserID,
		"hotel_id":   ev.HotelID,
	}).Info("Confirmation push sent")
}

func (l *Listener) sendRejectionEmail(ev event.BookingProcessed) {
	log.WithFields(map[string]interface{}{
		"booking_id": ev.BookingID,
		"email":      ev.CustomerEmail,
		"reason":     ev.RejectionReason,
	}).Info("Rejection email sent")
}
