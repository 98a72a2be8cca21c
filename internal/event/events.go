package event

import "time"

// Routing topology shared by all services.
const (
	BookingsExchange    = "hotel-bookings-exchange"
	OrchestrationFanout = "booking-orchestration-fanout"

	RoutingKeyBookingCreated = "booking.created"

	QueueBookingCreated = "orchestrator-booking-created-queue"
	QueueNotification   = "q.notification.orchestration"

	DLQExchange   = "orchestrator-bookings-dlx"
	DLQQueue      = "dlq-orchestrator-booking-created"
	RoutingKeyDLQ = "dlq.booking.created"
)

// Booking outcome statuses.
const (
	StatusConfirmed = "CONFIRMED"
	StatusRejected  = "REJECTED"
)

// BookingCreated is the inbound event published by the booking writer.
// Immutable once published; dates are ISO calendar dates (2006-01-02).
type BookingCreated struct {
	BookingID     string  `json:"bookingId"`
	UserID        string  `json:"userId"`
	HotelID       string  `json:"hotelId"`
	CustomerEmail string  `json:"customerEmail"`
	CheckIn       string  `json:"checkIn"`
	CheckOut      string  `json:"checkOut"`
	Nights        int     `json:"nights"`
	BasePrice     float64 `json:"basePrice"`
	PricePerNight float64 `json:"pricePerNight"`
}

// BookingProcessed is the terminal outcome fact published by the orchestrator.
// Never mutated after publication; consumers derive state transitions from it.
type BookingProcessed struct {
	BookingID          string   `json:"bookingId"`
	UserID             string   `json:"userId"`
	HotelID            string   `json:"hotelId"`
	CustomerEmail      string   `json:"customerEmail"`
	Status             string   `json:"status"`
	OriginalPrice      float64  `json:"originalPrice"`
	FinalPrice         float64  `json:"finalPrice"`
	DiscountPercentage float64  `json:"discountPercentage"`
	DiscountReason     string   `json:"discountReason,omitempty"`
	RejectionReason    string   `json:"rejectionReason,omitempty"`
	Recommendations    []string `json:"recommendations,omitempty"`
	Timestamp          int64    `json:"timestamp"`
}

// NewBookingConfirmed builds the confirmed variant of BookingProcessed.
func NewBookingConfirmed(src BookingCreated, finalPrice, discountPct float64, discountReason string, recommendations []string) BookingProcessed {
	return BookingProcessed{
		BookingID:          src.BookingID,
		UserID:             src.UserID,
		HotelID:            src.HotelID,
		CustomerEmail:      src.CustomerEmail,
		Status:             StatusConfirmed,
		OriginalPrice:      src.BasePrice,
		FinalPrice:         finalPrice,
		DiscountPercentage: discountPct,
		DiscountReason:     discountReason,
		Recommendations:    recommendations,
		Timestamp:          time.Now().UnixMilli(),
	}
}

// NewBookingRejected builds the rejected variant of BookingProcessed.
func NewBookingRejected(src BookingCreated, reason string) BookingProcessed {
	return BookingProcessed{
		BookingID:       src.BookingID,
		UserID:          src.UserID,
		HotelID:         src.HotelID,
		CustomerEmail:   src.CustomerEmail,
		Status:          StatusRejected,
		OriginalPrice:   src.BasePrice,
		RejectionReason: reason,
		Timestamp:       time.Now().UnixMilli(),
	}
}
