package discountsvc

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"hotelbooking/internal/discount/discountpb"
)

func newTestService() *Service {
	return NewService(rand.New(rand.NewSource(1)))
}

func TestCalculateDiscount(t *testing.T) {
	ctx := context.Background()

	t.Run("RejectsInvalidInput", func(t *testing.T) {
		svc := newTestService()

		_, err := svc.CalculateDiscount(ctx, &discountpb.DiscountRequest{
			BookingId: "bk-1",
			BasePrice: 0,
			Nights:    3,
		})
		require.Error(t, err)
		assert.Equal(t, codes.InvalidArgument, status.Code(err))

		_, err = svc.CalculateDiscount(ctx, &discountpb.DiscountRequest{
			BookingId: "bk-1",
			BasePrice: 100,
			Nights:    0,
		})
		require.Error(t, err)
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("LoyalCustomerDiscount", func(t *testing.T) {
		svc := newTestService()

		resp, err := svc.CalculateDiscount(ctx, &discountpb.DiscountRequest{
			BookingId:       "bk-2",
			BasePrice:       200,
			Nights:          2,
			IsLoyalCustomer: true,
		})
		require.NoError(t, err)

		assert.True(t, resp.GetApplied())
		assert.GreaterOrEqual(t, resp.GetDiscountPercentage(), 10.0)
		assert.Less(t, resp.GetDiscountPercentage(), 15.0)
		assert.InDelta(t, 200*(1-resp.GetDiscountPercentage()/100), resp.GetFinalPrice(), 1e-9)
	})

	t.Run("LongStayDiscount", func(t *testing.T) {
		svc := newTestService()

		resp, err := svc.CalculateDiscount(ctx, &discountpb.DiscountRequest{
			BookingId: "bk-3",
			BasePrice: 700,
			Nights:    7,
		})
		require.NoError(t, err)

		assert.True(t, resp.GetApplied())
		assert.Equal(t, 5.0, resp.GetDiscountPercentage())
		assert.InDelta(t, 665.0, resp.GetFinalPrice(), 1e-9)
	})

	t.Run("ResponseAlwaysValidForOrchestrator", func(t *testing.T) {
		svc := newTestService()

		// whatever the rng does, the response must pass the orchestrator's
		// revalidation: pct in [0,100], final price >= 0
		for i := 0; i < 100; i++ {
			resp, err := svc.CalculateDiscount(ctx, &discountpb.DiscountRequest{
				BookingId: "bk-4",
				BasePrice: 150,
				Nights:    3,
			})
			require.NoError(t, err)

			assert.GreaterOrEqual(t, resp.GetDiscountPercentage(), 0.0)
			assert.LessOrEqual(t, resp.GetDiscountPercentage(), 100.0)
			assert.GreaterOrEqual(t, resp.GetFinalPrice(), 0.0)
			assert.LessOrEqual(t, resp.GetFinalPrice(), 150.0)
		}
	})
}

func TestGetRecommendations(t *testing.T) {
	ctx := context.Background()

	t.Run("RequiresUserId", func(t *testing.T) {
		svc := newTestService()

		_, err := svc.GetRecommendations(ctx, &discountpb.RecommendationRequest{})
		require.Error(t, err)
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("ReturnsThreeHotels", func(t *testing.T) {
		svc := newTestService()

		resp, err := svc.GetRecommendations(ctx, &discountpb.RecommendationRequest{UserId: "u-1"})
		require.NoError(t, err)

		assert.Len(t, resp.GetRecommendedHotelIds(), 3)
		for _, id := range resp.GetRecommendedHotelIds() {
			assert.Regexp(t, `^hotel_\d+$`, id)
		}
	})
}
