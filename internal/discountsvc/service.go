// Package discountsvc is a reference implementation of the discount service
// peer, useful for local runs and integration testing of the orchestrator.
package discountsvc

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"hotelbooking/internal/discount/discountpb"
	"hotelbooking/pkg/log"
)

// Service implements discountpb.DiscountServiceServer.
type Service struct {
	discountpb.UnimplementedDiscountServiceServer

	mu  sync.Mutex
	rng *rand.Rand
}

// NewService creates the service with the given random source.
// A nil source falls back to an unseeded default.
func NewService(rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Service{rng: rng}
}

// CalculateDiscount applies the pricing rules: loyal customers get 10-15%,
// stays of 7+ nights get 5%, otherwise a 10% chance of a 7% promo.
func (s *Service) CalculateDiscount(ctx context.Context, req *discountpb.DiscountRequest) (*discountpb.DiscountResponse, error) {
	log.WithField("booking_id", req.GetBookingId()).Info("Discount calculation requested")

	if req.GetBasePrice() <= 0 || req.GetNights() <= 0 {
		return nil, status.Error(codes.InvalidArgument, "basePrice and nights must be > 0")
	}

	var (
		pct     float64
		reason  = "no discount applied"
		applied bool
	)

	s.mu.Lock()
	loyaltyBonus := s.rng.Float64() * 5.0
	promoRoll := s.rng.Float64()
	s.mu.Unlock()

	switch {
	case req.GetIsLoyalCustomer():
		pct = 10.0 + loyaltyBonus
		reason = "loyal customer discount"
		applied = true
	case req.GetNights() >= 7:
		pct = 5.0
		reason = "long stay discount"
		applied = true
	case promoRoll < 0.1:
		pct = 7.0
		reason = "promotional offer"
		applied = true
	}

	if pct > 100 {
		pct = 100
	}

	finalPrice := req.GetBasePrice()
	if applied {
		finalPrice = req.GetBasePrice() * (1 - pct/100.0)
	}
	if finalPrice < 0 {
		finalPrice = 0
	}

	log.WithFields(map[string]interface{}{
		"booking_id":  req.GetBookingId(),
		"discount":    pct,
		"final_price": finalPrice,
		"reason":      reason,
	}).Info("Discount calculated")

	return &discountpb.DiscountResponse{
		BookingId:          req.GetBookingId(),
		DiscountPercentage: pct,
		FinalPrice:         finalPrice,
		DiscountReason:     reason,
		Applied:            applied,
	}, nil
}

// GetRecommendations returns a small set of sampled hotel ids.
func (s *Service) GetRecommendations(ctx context.Context, req *discountpb.RecommendationRequest) (*discountpb.RecommendationResponse, error) {
	if req.GetUserId() == "" {
		return nil, status.Error(codes.InvalidArgument, "userId is required")
	}

	s.mu.Lock()
	ids := []string{
		fmt.Sprintf("hotel_%d", s.rng.Intn(100)),
		fmt.Sprintf("hotel_%d", s.rng.Intn(100)),
		fmt.Sprintf("hotel_%d", s.rng.Intn(100)),
	}
	s.mu.Unlock()

	log.WithFields(map[string]interface{}{
		"user_id":         req.GetUserId(),
		"recommendations": ids,
	}).Info("Recommendations returned")

	return &discountpb.RecommendationResponse{
		RecommendedHotelIds: ids,
		Message:             "recommended based on your booking history",
	}, nil
}
