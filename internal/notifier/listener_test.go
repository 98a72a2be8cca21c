package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelbooking/internal/event"
)

type fakeSender struct {
	err      error
	userIDs  []string
	payloads [][]byte
}

func (f *fakeSender) SendToUser(ctx context.Context, userID string, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.userIDs = append(f.userIDs, userID)
	f.payloads = append(f.payloads, payload)
	return nil
}

func confirmedOutcome() event.BookingProcessed {
	return event.BookingProcessed{
		BookingID:          "bk-1",
		UserID:             "u-1",
		HotelID:            "h-1",
		CustomerEmail:      "guest@example.com",
		Status:             event.StatusConfirmed,
		OriginalPrice:      300,
		FinalPrice:         285,
		DiscountPercentage: 5,
		Recommendations:    []string{"hotel_3"},
	}
}

func TestHandleBookingProcessedSendsNotification(t *testing.T) {
	sender := &fakeSender{}
	l := NewListener(nil, sender, "test")

	l.HandleBookingProcessed(context.Background(), confirmedOutcome())

	require.Len(t, sender.payloads, 1)
	assert.Equal(t, []string{"u-1"}, sender.userIDs)

	var n Notification
	require.NoError(t, json.Unmarshal(sender.payloads[0], &n))
	assert.Equal(t, "BOOKING_UPDATE", n.Type)
	assert.Equal(t, "bk-1", n.BookingID)
	assert.Equal(t, event.StatusConfirmed, n.Status)
	assert.Equal(t, 285.0, n.FinalPrice)
	assert.Equal(t, []string{"hotel_3"}, n.Recommendations)
	assert.Contains(t, n.Message, "bk-1")
	assert.Contains(t, n.Message, "confirmed")
	assert.Empty(t, n.RejectionReason)
	assert.NotZero(t, n.Timestamp)
}

func TestHandleBookingProcessedSendFailureIsBestEffort(t *testing.T) {
	sender := &fakeSender{err: errors.New("redis down")}
	l := NewListener(nil, sender, "test")

	// must not panic or propagate, the delivery is still acked upstream
	l.HandleBookingProcessed(context.Background(), confirmedOutcome())
}

func TestBuildNotificationRejected(t *testing.T) {
	ev := confirmedOutcome()
	ev.Status = event.StatusRejected
	ev.FinalPrice = 0
	ev.DiscountPercentage = 0
	ev.Recommendations = nil
	ev.RejectionReason = "invalid event data"

	n := BuildNotification(ev)

	assert.Equal(t, event.StatusRejected, n.Status)
	assert.Equal(t, "invalid event data", n.RejectionReason)
	assert.Contains(t, n.Message, "could not be confirmed")
	assert.Contains(t, n.Message, "invalid event data")
	assert.Empty(t, n.Recommendations)

	// omitted fields stay out of the wire payload
	b, err := json.Marshal(n)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "recommendations")
}

func TestBuildNotificationConfirmedOmitsRejection(t *testing.T) {
	n := BuildNotification(confirmedOutcome())

	b, err := json.Marshal(n)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "rejectionReason")
}
