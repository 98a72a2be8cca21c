package orchestrator

import (
	"context"
	"fmt"
	"time"

	"hotelbooking/internal/discount/discountpb"
	"hotelbooking/internal/event"
	"hotelbooking/internal/monitor"
	"hotelbooking/pkg/log"
)

// Rejection reasons published on permanently rejected bookings.
const (
	ReasonInvalidEvent    = "invalid event data"
	ReasonInvalidDiscount = "invalid discount response"
	ReasonInvalidPrice    = "invalid price from discount service"
)

// maxPriceFactor caps the final price a discount response may report,
// guarding against a buggy or malicious peer inflating the price.
const maxPriceFactor = 1.5

const dateLayout = "2006-01-02"

// AdmissionGuard is the distributed exactly-once gate (see internal/idempotency).
type AdmissionGuard interface {
	TryAcquire(ctx context.Context, bookingID string) (bool, error)
	Release(ctx context.Context, bookingID string) error
}

// DiscountGateway is the resilient discount peer wrapper; its calls never
// fail, they degrade to fallbacks (see internal/discount).
type DiscountGateway interface {
	CalculateDiscount(ctx context.Context, req *discountpb.DiscountRequest) *discountpb.DiscountResponse
	GetRecommendations(ctx context.Context, req *discountpb.RecommendationRequest) *discountpb.RecommendationResponse
}

// Publisher delivers outcomes to the shared fanout exchange.
type Publisher interface {
	PublishBookingProcessed(ctx context.Context, ev event.BookingProcessed) error
}

// RetryableError marks a failure that must be handed back to the broker for
// redelivery. It is returned only after the idempotency marker has been
// released (or was never acquired), so redelivery can be admitted again.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable: %v", e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

func retryable(err error) error {
	return &RetryableError{Err: err}
}

// IsRetryable reports whether the consumer should nack-requeue the message.
func IsRetryable(err error) bool {
	_, ok := err.(*RetryableError)
	return ok
}

// Service runs the per-booking orchestration state machine:
// admission, validation, discount call, decision, publication.
type Service struct {
	guard     AdmissionGuard
	discounts DiscountGateway
	publisher Publisher
}

// NewService wires the orchestrator.
func NewService(guard AdmissionGuard, discounts DiscountGateway, publisher Publisher) *Service {
	return &Service{
		guard:     guard,
		discounts: discounts,
		publisher: publisher,
	}
}

// HandleBookingCreated processes one inbound booking event. A nil return
// means the message is done (processed, rejected or duplicate) and must be
// acked; a RetryableError means the marker was released and the broker
// should redeliver.
func (s *Service) HandleBookingCreated(ctx context.Context, ev event.BookingCreated) error {
	acquired, err := s.guard.TryAcquire(ctx, ev.BookingID)
	if err != nil {
		// the gate itself is down; never admit un-gated
		monitor.RetryableFailure()
		return retryable(err)
	}
	if !acquired {
		log.WithField("booking_id", ev.BookingID).Warn("Duplicate event ignored")
		monitor.DuplicateDropped()
		return nil
	}

	log.WithFields(map[string]interface{}{
		"booking_id": ev.BookingID,
		"hotel_id":   ev.HotelID,
		"nights":     ev.Nights,
		"base_price": ev.BasePrice,
	}).Info("Booking event received")

	if err := validateBookingEvent(ev); err != nil {
		// a structurally invalid event must never be reprocessed,
		// so the marker is kept
		log.WithFields(map[string]interface{}{
			"booking_id": ev.BookingID,
			"error":      err.Error(),
		}).Warn("Booking event failed validation")
		return s.publishOutcome(ctx, ev, event.NewBookingRejected(ev, ReasonInvalidEvent))
	}

	discountResp := s.discounts.CalculateDiscount(ctx, &discountpb.DiscountRequest{
		BookingId:       ev.BookingID,
		HotelId:         ev.HotelID,
		Nights:          int32(ev.Nights),
		BasePrice:       ev.BasePrice,
		IsLoyalCustomer: false,
	})

	if !discountResp.GetApplied() {
		log.WithFields(map[string]interface{}{
			"booking_id": ev.BookingID,
			"reason":     discountResp.GetDiscountReason(),
		}).Info("No discount applied")
		monitor.DiscountFallback()
	}

	if err := validateDiscountResponse(discountResp); err != nil {
		// permanent rejection, marker kept
		log.WithFields(map[string]interface{}{
			"booking_id": ev.BookingID,
			"error":      err.Error(),
		}).Error("Invalid discount response")
		return s.publishOutcome(ctx, ev, event.NewBookingRejected(ev, ReasonInvalidDiscount))
	}

	recommendations := s.discounts.GetRecommendations(ctx, &discountpb.RecommendationRequest{
		UserId:  ev.UserID,
		HotelId: ev.HotelID,
	})

	finalPrice := discountResp.GetFinalPrice()
	confirmed := finalPrice > 0 && finalPrice <= ev.BasePrice*maxPriceFactor

	var outcome event.BookingProcessed
	if confirmed {
		log.WithFields(map[string]interface{}{
			"booking_id":  ev.BookingID,
			"final_price": finalPrice,
			"discount":    discountResp.GetDiscountPercentage(),
		}).Info("Booking confirmed")

		outcome = event.NewBookingConfirmed(ev,
			finalPrice,
			discountResp.GetDiscountPercentage(),
			discountResp.GetDiscountReason(),
			recommendations.GetRecommendedHotelIds(),
		)
	} else {
		log.WithFields(map[string]interface{}{
			"booking_id":  ev.BookingID,
			"final_price": finalPrice,
			"base_price":  ev.BasePrice,
		}).Warn("Booking rejected, price out of bounds")

		outcome = event.NewBookingRejected(ev, ReasonInvalidPrice)
	}

	return s.publishOutcome(ctx, ev, outcome)
}

// publishOutcome publishes the terminal fact. A publish failure is an
// infrastructure fault: release the marker so broker redelivery can retry.
func (s *Service) publishOutcome(ctx context.Context, ev event.BookingCreated, outcome event.BookingProcessed) error {
	if err := s.publisher.PublishBookingProcessed(ctx, outcome); err != nil {
		log.WithFields(map[string]interface{}{
			"booking_id": ev.BookingID,
			"error":      err.Error(),
		}).Error("Failed to publish booking outcome")

		if relErr := s.guard.Release(ctx, ev.BookingID); relErr != nil {
			log.WithFields(map[string]interface{}{
				"booking_id": ev.BookingID,
				"error":      relErr.Error(),
			}).Error("Failed to release idempotency marker")
		}
		monitor.RetryableFailure()
		return retryable(err)
	}

	log.WithFields(map[string]interface{}{
		"booking_id":  outcome.BookingID,
		"status":      outcome.Status,
		"final_price": outcome.FinalPrice,
		"discount":    outcome.DiscountPercentage,
	}).Info("Booking outcome published")
	monitor.BookingProcessed(outcome.Status)

	return nil
}

func validateBookingEvent(ev event.BookingCreated) error {
	if ev.BookingID == "" {
		return fmt.Errorf("empty bookingId")
	}
	if ev.HotelID == "" {
		return fmt.Errorf("empty hotelId")
	}
	if ev.UserID == "" {
		return fmt.Errorf("empty userId")
	}
	if ev.Nights <= 0 {
		return fmt.Errorf("invalid nights: %d", ev.Nights)
	}
	if ev.BasePrice <= 0 {
		return fmt.Errorf("invalid basePrice: %f", ev.BasePrice)
	}
	if ev.PricePerNight <= 0 {
		return fmt.Errorf("invalid pricePerNight: %f", ev.PricePerNight)
	}

	checkIn, err := time.Parse(dateLayout, ev.CheckIn)
	if err != nil {
		return fmt.Errorf("invalid checkIn date %q", ev.CheckIn)
	}
	checkOut, err := time.Parse(dateLayout, ev.CheckOut)
	if err != nil {
		return fmt.Errorf("invalid checkOut date %q", ev.CheckOut)
	}

	if !checkOut.After(checkIn) {
		return fmt.Errorf("checkOut must be after checkIn: %s -> %s", ev.CheckIn, ev.CheckOut)
	}

	// a mismatch is a rejection, never silently corrected
	nights := int(checkOut.Sub(checkIn) / (24 * time.Hour))
	if nights != ev.Nights {
		return fmt.Errorf("nights mismatch: event says %d, dates span %d", ev.Nights, nights)
	}

	return nil
}

func validateDiscountResponse(resp *discountpb.DiscountResponse) error {
	if resp == nil {
		return fmt.Errorf("nil discount response")
	}
	if resp.GetDiscountPercentage() < 0 || resp.GetDiscountPercentage() > 100 {
		return fmt.Errorf("discount percentage out of range: %f", resp.GetDiscountPercentage())
	}
	if resp.GetFinalPrice() < 0 {
		return fmt.Errorf("negative final price: %f", resp.GetFinalPrice())
	}
	return nil
}
