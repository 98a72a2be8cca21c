package discount

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc"

	"hotelbooking/internal/config"
	"hotelbooking/internal/discount/discountpb"
	"hotelbooking/pkg/breaker"
)

type fakeRPC struct {
	discountResp *discountpb.DiscountResponse
	recResp      *discountpb.RecommendationResponse
	err          error
	calls        int
}

func (f *fakeRPC) CalculateDiscount(ctx context.Context, in *discountpb.DiscountRequest, opts ...grpc.CallOption) (*discountpb.DiscountResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.discountResp, nil
}

func (f *fakeRPC) GetRecommendations(ctx context.Context, in *discountpb.RecommendationRequest, opts ...grpc.CallOption) (*discountpb.RecommendationResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.recResp, nil
}

func testConfig() config.DiscountConfig {
	return config.DiscountConfig{
		Addr:            "localhost:9090",
		CallTimeout:     time.Second,
		BreakerWindow:   time.Minute,
		BreakerMinCalls: 3,
		BreakerFailRate: 0.5,
		BreakerCooldown: 30 * time.Second,
		BreakerHalfOpen: 1,
	}
}

func TestCalculateDiscount(t *testing.T) {
	ctx := context.Background()

	t.Run("PassesThroughPeerResponse", func(t *testing.T) {
		rpc := &fakeRPC{discountResp: &discountpb.DiscountResponse{
			BookingId:          "bk-1",
			DiscountPercentage: 5,
			FinalPrice:         95,
			DiscountReason:     "long stay discount",
			Applied:            true,
		}}
		client := NewClientWithRPC(testConfig(), rpc)

		resp := client.CalculateDiscount(ctx, &discountpb.DiscountRequest{
			BookingId: "bk-1",
			BasePrice: 100,
		})

		assert.True(t, resp.GetApplied())
		assert.Equal(t, 95.0, resp.GetFinalPrice())
		assert.Equal(t, 1, rpc.calls)
	})

	t.Run("FallbackOnPeerError", func(t *testing.T) {
		rpc := &fakeRPC{err: errors.New("connection refused")}
		client := NewClientWithRPC(testConfig(), rpc)

		resp := client.CalculateDiscount(ctx, &discountpb.DiscountRequest{
			BookingId: "bk-2",
			BasePrice: 250,
		})

		assert.False(t, resp.GetApplied())
		assert.Equal(t, 0.0, resp.GetDiscountPercentage())
		assert.Equal(t, 250.0, resp.GetFinalPrice(), "fallback keeps the base price")
		assert.Equal(t, FallbackReason, resp.GetDiscountReason())
	})

	t.Run("OpenBreakerShortCircuits", func(t *testing.T) {
		rpc := &fakeRPC{err: errors.New("connection refused")}
		client := NewClientWithRPC(testConfig(), rpc)

		// trip the breaker: 3 calls at 100% failure rate
		for i := 0; i < 3; i++ {
			client.CalculateDiscount(ctx, &discountpb.DiscountRequest{BookingId: "bk-3", BasePrice: 100})
		}
		assert.Equal(t, breaker.StateOpen, client.BreakerState())

		callsBefore := rpc.calls
		resp := client.CalculateDiscount(ctx, &discountpb.DiscountRequest{BookingId: "bk-3", BasePrice: 100})

		assert.Equal(t, callsBefore, rpc.calls, "open breaker must not reach the peer")
		assert.False(t, resp.GetApplied())
		assert.Equal(t, 100.0, resp.GetFinalPrice())
	})
}

func TestGetRecommendations(t *testing.T) {
	ctx := context.Background()

	t.Run("PassesThroughPeerResponse", func(t *testing.T) {
		rpc := &fakeRPC{recResp: &discountpb.RecommendationResponse{
			RecommendedHotelIds: []string{"hotel_1", "hotel_2"},
		}}
		client := NewClientWithRPC(testConfig(), rpc)

		resp := client.GetRecommendations(ctx, &discountpb.RecommendationRequest{UserId: "u-1"})

		assert.Equal(t, []string{"hotel_1", "hotel_2"}, resp.GetRecommendedHotelIds())
	})

	t.Run("FallbackIsEmptyList", func(t *testing.T) {
		rpc := &fakeRPC{err: errors.New("deadline exceeded")}
		client := NewClientWithRPC(testConfig(), rpc)

		resp := client.GetRecommendations(ctx, &discountpb.RecommendationRequest{UserId: "u-2"})

		assert.Empty(t, resp.GetRecommendedHotelIds())
	})
}

func TestBreakerSharedAcrossBothCalls(t *testing.T) {
	// both RPCs target the same peer, so they share one breaker
	rpc := &fakeRPC{err: errors.New("connection refused")}
	client := NewClientWithRPC(testConfig(), rpc)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		client.GetRecommendations(ctx, &discountpb.RecommendationRequest{UserId: "u-3"})
	}
	assert.Equal(t, breaker.StateOpen, client.BreakerState())

	callsBefore := rpc.calls
	resp := client.CalculateDiscount(ctx, &discountpb.DiscountRequest{BookingId: "bk-4", BasePrice: 80})

	assert.Equal(t, callsBefore, rpc.calls)
	assert.Equal(t, 80.0, resp.GetFinalPrice())
}
