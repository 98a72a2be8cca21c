package discount

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"hotelbooking/internal/config"
	"hotelbooking/internal/discount/discountpb"
	"hotelbooking/pkg/breaker"
	"hotelbooking/pkg/log"
)

// FallbackReason is reported on discount responses synthesized while the
// remote peer is unreachable or the circuit is open.
const FallbackReason = "discount service unavailable"

// Client wraps the discount gRPC peer with a per-call deadline, a circuit
// breaker keyed by the peer address, and non-raising fallbacks. Callers never
// see a remote failure: a degraded response is always returned instead.
type Client struct {
	peer     string
	rpc      discountpb.DiscountServiceClient
	breakers *breaker.Manager
	timeout  time.Duration

	conn *grpc.ClientConn
}

// NewClient dials the discount service and builds the resilient wrapper.
func NewClient(cfg config.DiscountConfig) (*Client, error) {
	conn, err := grpc.NewClient(cfg.Addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to dial discount service: %w", err)
	}

	c := newClient(cfg, discountpb.NewDiscountServiceClient(conn))
	c.conn = conn
	return c, nil
}

// NewClientWithRPC builds the wrapper around an existing RPC client.
// Used by tests and by callers that manage the connection themselves.
func NewClientWithRPC(cfg config.DiscountConfig, rpc discountpb.DiscountServiceClient) *Client {
	return newClient(cfg, rpc)
}

func newClient(cfg config.DiscountConfig, rpc discountpb.DiscountServiceClient) *Client {
	timeout := cfg.CallTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	breakers := breaker.NewManager(breaker.Config{
		MaxRequests: cfg.BreakerHalfOpen,
		Interval:    cfg.BreakerWindow,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: breaker.FailureRateTrip(cfg.BreakerMinCalls, cfg.BreakerFailRate),
		OnStateChange: func(name string, from breaker.State, to breaker.State) {
			log.WithFields(map[string]interface{}{
				"peer": name,
				"from": from.String(),
				"to":   to.String(),
			}).Warn("Discount breaker state changed")
		},
	})

	return &Client{
		peer:     cfg.Addr,
		rpc:      rpc,
		breakers: breakers,
		timeout:  timeout,
	}
}

// CalculateDiscount asks the peer for a discount. On breaker-open, deadline
// or transport failure it returns the zero-discount fallback so the
// orchestrator can proceed with a degraded decision.
func (c *Client) CalculateDiscount(ctx context.Context, req *discountpb.DiscountRequest) *discountpb.DiscountResponse {
	var resp *discountpb.DiscountResponse

	err := c.breakers.Execute(ctx, c.peer, func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		var callErr error
		resp, callErr = c.rpc.CalculateDiscount(callCtx, req)
		return callErr
	})

	if err != nil {
		log.WithFields(map[string]interface{}{
			"booking_id": req.GetBookingId(),
			"error":      err.Error(),
		}).Warn("Discount call failed, using fallback")
		return c.calculateDiscountFallback(req)
	}

	return resp
}

func (c *Client) calculateDiscountFallback(req *discountpb.DiscountRequest) *discountpb.DiscountResponse {
	return &discountpb.DiscountResponse{
		BookingId:          req.GetBookingId(),
		DiscountPercentage: 0,
		FinalPrice:         req.GetBasePrice(),
		DiscountReason:     FallbackReason,
		Applied:            false,
	}
}

// GetRecommendations asks the peer for recommended hotels. Failure is
// non-fatal: the fallback is an empty recommendation list.
func (c *Client) GetRecommendations(ctx context.Context, req *discountpb.RecommendationRequest) *discountpb.RecommendationResponse {
	var resp *discountpb.RecommendationResponse

	err := c.breakers.Execute(ctx, c.peer, func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		var callErr error
		resp, callErr = c.rpc.GetRecommendations(callCtx, req)
		return callErr
	})

	if err != nil {
		log.WithFields(map[string]interface{}{
			"user_id": req.GetUserId(),
			"error":   err.Error(),
		}).Warn("Recommendations call failed, using fallback")
		return &discountpb.RecommendationResponse{
			RecommendedHotelIds: nil,
			Message:             FallbackReason,
		}
	}

	return resp
}

// BreakerState exposes the breaker state for the health surface.
func (c *Client) BreakerState() breaker.State {
	return c.breakers.State(c.peer)
}

// Close releases the underlying connection if this client owns one.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
