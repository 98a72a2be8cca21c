// Package discountpb holds the wire types and client/server bindings for the
// discount service RPC contract defined in discount.proto. The stubs follow
// the protoc-gen-go layout so they stay hand-maintainable next to the proto.
package discountpb

import (
	"context"

	"github.com/golang/protobuf/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DiscountRequest carries the booking facts the discount calculation needs.
type DiscountRequest struct {
	BookingId       string  `protobuf:"bytes,1,opt,name=booking_id,json=bookingId,proto3" json:"booking_id,omitempty"`
	HotelId         string  `protobuf:"bytes,2,opt,name=hotel_id,json=hotelId,proto3" json:"hotel_id,omitempty"`
	Nights          int32   `protobuf:"varint,3,opt,name=nights,proto3" json:"nights,omitempty"`
	BasePrice       float64 `protobuf:"fixed64,4,opt,name=base_price,json=basePrice,proto3" json:"base_price,omitempty"`
	IsLoyalCustomer bool    `protobuf:"varint,5,opt,name=is_loyal_customer,json=isLoyalCustomer,proto3" json:"is_loyal_customer,omitempty"`
}

func (m *DiscountRequest) Reset()         { *m = DiscountRequest{} }
func (m *DiscountRequest) String() string { return proto.CompactTextString(m) }
func (*DiscountRequest) ProtoMessage()    {}

func (m *DiscountRequest) GetBookingId() string {
	if m != nil {
		return m.BookingId
	}
	return ""
}

func (m *DiscountRequest) GetHotelId() string {
	if m != nil {
		return m.HotelId
	}
	return ""
}

func (m *DiscountRequest) GetNights() int32 {
	if m != nil {
		return m.Nights
	}
	return 0
}

func (m *DiscountRequest) GetBasePrice() float64 {
	if m != nil {
		return m.BasePrice
	}
	return 0
}

func (m *DiscountRequest) GetIsLoyalCustomer() bool {
	if m != nil {
		return m.IsLoyalCustomer
	}
	return false
}

// DiscountResponse is the untrusted peer response; the orchestrator
// revalidates it before acting on it.
type DiscountResponse struct {
	BookingId          string  `protobuf:"bytes,1,opt,name=booking_id,json=bookingId,proto3" json:"booking_id,omitempty"`
	DiscountPercentage float64 `protobuf:"fixed64,2,opt,name=discount_percentage,json=discountPercentage,proto3" json:"discount_percentage,omitempty"`
	FinalPrice         float64 `protobuf:"fixed64,3,opt,name=final_price,json=finalPrice,proto3" json:"final_price,omitempty"`
	DiscountReason     string  `protobuf:"bytes,4,opt,name=discount_reason,json=discountReason,proto3" json:"discount_reason,omitempty"`
	Applied            bool    `protobuf:"varint,5,opt,name=applied,proto3" json:"applied,omitempty"`
}

func (m *DiscountResponse) Reset()         { *m = DiscountResponse{} }
func (m *DiscountResponse) String() string { return proto.CompactTextString(m) }
func (*DiscountResponse) ProtoMessage()    {}

func (m *DiscountResponse) GetBookingId() string {
	if m != nil {
		return m.BookingId
	}
	return ""
}

func (m *DiscountResponse) GetDiscountPercentage() float64 {
	if m != nil {
		return m.DiscountPercentage
	}
	return 0
}

func (m *DiscountResponse) GetFinalPrice() float64 {
	if m != nil {
		return m.FinalPrice
	}
	return 0
}

func (m *DiscountResponse) GetDiscountReason() string {
	if m != nil {
		return m.DiscountReason
	}
	return ""
}

func (m *DiscountResponse) GetApplied() bool {
	if m != nil {
		return m.Applied
	}
	return false
}

// RecommendationRequest asks for hotels related to a user's booking history.
type RecommendationRequest struct {
	UserId  string `protobuf:"bytes,1,opt,name=user_id,json=userId,proto3" json:"user_id,omitempty"`
	HotelId string `protobuf:"bytes,2,opt,name=hotel_id,json=hotelId,proto3" json:"hotel_id,omitempty"`
}

func (m *RecommendationRequest) Reset()         { *m = RecommendationRequest{} }
func (m *RecommendationRequest) String() string { return proto.CompactTextString(m) }
func (*RecommendationRequest) ProtoMessage()    {}

func (m *RecommendationRequest) GetUserId() string {
	if m != nil {
		return m.UserId
	}
	return ""
}

func (m *RecommendationRequest) GetHotelId() string {
	if m != nil {
		return m.HotelId
	}
	return ""
}

// RecommendationResponse carries an ordered list of recommended hotel ids.
type RecommendationResponse struct {
	RecommendedHotelIds []string `protobuf:"bytes,1,rep,name=recommended_hotel_ids,json=recommendedHotelIds,proto3" json:"recommended_hotel_ids,omitempty"`
	Message             string   `protobuf:"bytes,2,opt,name=message,proto3" json:"message,omitempty"`
}

func (m *RecommendationResponse) Reset()         { *m = RecommendationResponse{} }
func (m *RecommendationResponse) String() string { return proto.CompactTextString(m) }
func (*RecommendationResponse) ProtoMessage()    {}

func (m *RecommendationResponse) GetRecommendedHotelIds() []string {
	if m != nil {
		return m.RecommendedHotelIds
	}
	return nil
}

func (m *RecommendationResponse) GetMessage() string {
	if m != nil {
		return m.Message
	}
	return ""
}

// DiscountServiceClient is the client API for DiscountService.
type DiscountServiceClient interface {
	CalculateDiscount(ctx context.Context, in *DiscountRequest, opts ...grpc.CallOption) (*DiscountResponse, error)
	GetRecommendations(ctx context.Context, in *RecommendationRequest, opts ...grpc.CallOption) (*RecommendationResponse, error)
}

type discountServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewDiscountServiceClient creates a client over the given connection.
func NewDiscountServiceClient(cc grpc.ClientConnInterface) DiscountServiceClient {
	return &discountServiceClient{cc}
}

func (c *discountServiceClient) CalculateDiscount(ctx context.Context, in *DiscountRequest, opts ...grpc.CallOption) (*DiscountResponse, error) {
	out := new(DiscountResponse)
	err := c.cc.Invoke(ctx, "/discount.DiscountService/CalculateDiscount", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *discountServiceClient) GetRecommendations(ctx context.Context, in *RecommendationRequest, opts ...grpc.CallOption) (*RecommendationResponse, error) {
	out := new(RecommendationResponse)
	err := c.cc.Invoke(ctx, "/discount.DiscountService/GetRecommendations", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DiscountServiceServer is the server API for DiscountService.
type DiscountServiceServer interface {
	CalculateDiscount(context.Context, *DiscountRequest) (*DiscountResponse, error)
	GetRecommendations(context.Context, *RecommendationRequest) (*RecommendationResponse, error)
}

// UnimplementedDiscountServiceServer may be embedded for forward compatibility.
type UnimplementedDiscountServiceServer struct{}

func (*UnimplementedDiscountServiceServer) CalculateDiscount(context.Context, *DiscountRequest) (*DiscountResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method CalculateDiscount not implemented")
}

func (*UnimplementedDiscountServiceServer) GetRecommendations(context.Context, *RecommendationRequest) (*RecommendationResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetRecommendations not implemented")
}

// RegisterDiscountServiceServer registers the service implementation with the gRPC server.
func RegisterDiscountServiceServer(s *grpc.Server, srv DiscountServiceServer) {
	s.RegisterService(&_DiscountService_serviceDesc, srv)
}

func _DiscountService_CalculateDiscount_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(DiscountRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DiscountServiceServer).CalculateDiscount(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/discount.DiscountService/CalculateDiscount",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(DiscountServiceServer).CalculateDiscount(ctx, req.(*DiscountRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _DiscountService_GetRecommendations_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(RecommendationRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DiscountServiceServer).GetRecommendations(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/discount.DiscountService/GetRecommendations",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(DiscountServiceServer).GetRecommendations(ctx, req.(*RecommendationRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var _DiscountService_serviceDesc = grpc.ServiceDesc{
	ServiceName: "discount.DiscountService",
	HandlerType: (*DiscountServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CalculateDiscount",
			Handler:    _DiscountService_CalculateDiscount_Handler,
		},
		{
			MethodName: "GetRecommendations",
			Handler:    _DiscountService_GetRecommendations_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "discount.proto",
}
