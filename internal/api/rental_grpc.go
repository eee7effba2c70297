package api

import (
	"context"
	"encoding/json"

	"wardrobe/internal/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// The rental service has no protobuf schema: messages travel as JSON under
// the "json" content subtype, i.e. application/grpc+json.
const (
	jsonCodecName     = "json"
	rentalServiceName = "wardrobe.rental.v1.RentalService"
)

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return jsonCodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type PhotoRef struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

type CreateBookingRequest struct {
	ItemID    int64  `json:"item_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type CancelBookingRequest struct {
	BookingID int64 `json:"booking_id"`
}

type BookingReply struct {
	Booking *models.Booking `json:"booking"`
}

type InitiateReturnRequest struct {
	BookingID int64      `json:"booking_id"`
	Condition string     `json:"condition"`
	Comments  string     `json:"comments,omitempty"`
	Photos    []PhotoRef `json:"photos"`
}

type GetReturnRequest struct {
	ReturnID int64 `json:"return_id"`
}

type ReviewReturnRequest struct {
	ReturnID            int64      `json:"return_id"`
	Condition           string     `json:"condition"`
	Comments            string     `json:"comments,omitempty"`
	HasDamage           bool       `json:"has_damage"`
	DamageDetails       string     `json:"damage_details,omitempty"`
	DamagePhotos        []PhotoRef `json:"damage_photos,omitempty"`
	EstimatedRepairCost int64      `json:"estimated_repair_cost"`
	DeductAmount        int64      `json:"deduct_amount"`
	AdditionalNotes     string     `json:"additional_notes,omitempty"`
	Resolution          string     `json:"resolution,omitempty"`
	OwnerAddress        string     `json:"owner_address,omitempty"`
	ReturnMethod        string     `json:"return_method,omitempty"`
}

type ResolveDisputeRequest struct {
	ReturnID     int64  `json:"return_id"`
	Resolution   string `json:"resolution"`
	RefundAmount *int64 `json:"refund_amount,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

type ListDisputedRequest struct{}

type ReturnReply struct {
	Return *models.Return `json:"return"`
}

type ReturnList struct {
	Returns []*models.Return `json:"returns"`
}

// RentalServiceServer is the server API for wardrobe.rental.v1.RentalService.
type RentalServiceServer interface {
	CreateBooking(context.Context, *CreateBookingRequest) (*BookingReply, error)
	CancelBooking(context.Context, *CancelBookingRequest) (*BookingReply, error)
	InitiateReturn(context.Context, *InitiateReturnRequest) (*ReturnReply, error)
	GetReturn(context.Context, *GetReturnRequest) (*ReturnReply, error)
	ReviewReturn(context.Context, *ReviewReturnRequest) (*ReturnReply, error)
	ResolveDispute(context.Context, *ResolveDisputeRequest) (*ReturnReply, error)
	ListDisputed(context.Context, *ListDisputedRequest) (*ReturnList, error)
}

func fullMethod(name string) string {
	return "/" + rentalServiceName + "/" + name
}

func unaryHandler[Req, Resp any](name string, call func(RentalServiceServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RentalServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(RentalServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var RentalServiceDesc = grpc.ServiceDesc{
	ServiceName: rentalServiceName,
	HandlerType: (*RentalServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateBooking", Handler: unaryHandler("CreateBooking", RentalServiceServer.CreateBooking)},
		{MethodName: "CancelBooking", Handler: unaryHandler("CancelBooking", RentalServiceServer.CancelBooking)},
		{MethodName: "InitiateReturn", Handler: unaryHandler("InitiateReturn", RentalServiceServer.InitiateReturn)},
		{MethodName: "GetReturn", Handler: unaryHandler("GetReturn", RentalServiceServer.GetReturn)},
		{MethodName: "ReviewReturn", Handler: unaryHandler("ReviewReturn", RentalServiceServer.ReviewReturn)},
		{MethodName: "ResolveDispute", Handler: unaryHandler("ResolveDispute", RentalServiceServer.ResolveDispute)},
		{MethodName: "ListDisputed", Handler: unaryHandler("ListDisputed", RentalServiceServer.ListDisputed)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "wardrobe/rental/v1/rental.json",
}

func RegisterRentalServiceServer(s grpc.ServiceRegistrar, srv RentalServiceServer) {
	s.RegisterService(&RentalServiceDesc, srv)
}

// RentalClient calls RentalService with the JSON codec.
type RentalClient struct {
	cc grpc.ClientConnInterface
}

func NewRentalClient(cc grpc.ClientConnInterface) *RentalClient {
	return &RentalClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, name string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(jsonCodecName)}, opts...)
	if err := cc.Invoke(ctx, fullMethod(name), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RentalClient) CreateBooking(ctx context.Context, in *CreateBookingRequest, opts ...grpc.CallOption) (*BookingReply, error) {
	return invoke[BookingReply](ctx, c.cc, "CreateBooking", in, opts)
}

func (c *RentalClient) CancelBooking(ctx context.Context, in *CancelBookingRequest, opts ...grpc.CallOption) (*BookingReply, error) {
	return invoke[BookingReply](ctx, c.cc, "CancelBooking", in, opts)
}

func (c *RentalClient) InitiateReturn(ctx context.Context, in *InitiateReturnRequest, opts ...grpc.CallOption) (*ReturnReply, error) {
	return invoke[ReturnReply](ctx, c.cc, "InitiateReturn", in, opts)
}

func (c *RentalClient) GetReturn(ctx context.Context, in *GetReturnRequest, opts ...grpc.CallOption) (*ReturnReply, error) {
	return invoke[ReturnReply](ctx, c.cc, "GetReturn", in, opts)
}

func (c *RentalClient) ReviewReturn(ctx context.Context, in *ReviewReturnRequest, opts ...grpc.CallOption) (*ReturnReply, error) {
	return invoke[ReturnReply](ctx, c.cc, "ReviewReturn", in, opts)
}

func (c *RentalClient) ResolveDispute(ctx context.Context, in *ResolveDisputeRequest, opts ...grpc.CallOption) (*ReturnReply, error) {
	return invoke[ReturnReply](ctx, c.cc, "ResolveDispute", in, opts)
}

func (c *RentalClient) ListDisputed(ctx context.Context, in *ListDisputedRequest, opts ...grpc.CallOption) (*ReturnList, error) {
	return invoke[ReturnList](ctx, c.cc, "ListDisputed", in, opts)
}
