package api

import (
	"context"

	"wardrobe/internal/domain"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// RentalService implements RentalServiceServer on top of the rental core.
// Photos arrive as references already issued by photo storage.
type RentalService struct {
	bookings    domain.BookingService
	returns     domain.ReturnService
	inspections domain.InspectionService
}

func NewRentalService(bookings domain.BookingService, returns domain.ReturnService, inspections domain.InspectionService) *RentalService {
	return &RentalService{bookings: bookings, returns: returns, inspections: inspections}
}

func callerFrom(ctx context.Context) (domain.Principal, error) {
	p, ok := PrincipalFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing bearer token")
	}
	return p, nil
}

func photoInputs(refs []PhotoRef) []domain.PhotoInput {
	if len(refs) == 0 {
		return nil
	}
	out := make([]domain.PhotoInput, 0, len(refs))
	for _, ref := range refs {
		out = append(out, domain.PhotoInput{URL: ref.URL, Description: ref.Description})
	}
	return out
}

func (s *RentalService) CreateBooking(ctx context.Context, req *CreateBookingRequest) (*BookingReply, error) {
	p, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	renter, err := domain.AsRenter(p)
	if err != nil {
		return nil, grpcError(err)
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return nil, grpcError(err)
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		return nil, grpcError(err)
	}

	booking, err := s.bookings.CreateBooking(ctx, renter, domain.CreateBookingInput{ItemID: req.ItemID, StartDate: start, EndDate: end})
	if err != nil {
		return nil, grpcError(err)
	}
	return &BookingReply{Booking: booking}, nil
}

func (s *RentalService) CancelBooking(ctx context.Context, req *CancelBookingRequest) (*BookingReply, error) {
	p, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	renter, err := domain.AsRenter(p)
	if err != nil {
		return nil, grpcError(err)
	}
	booking, err := s.bookings.CancelBooking(ctx, renter, req.BookingID)
	if err != nil {
		return nil, grpcError(err)
	}
	return &BookingReply{Booking: booking}, nil
}

func (s *RentalService) InitiateReturn(ctx context.Context, req *InitiateReturnRequest) (*ReturnReply, error) {
	p, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	renter, err := domain.AsRenter(p)
	if err != nil {
		return nil, grpcError(err)
	}
	ret, err := s.returns.InitiateReturn(ctx, renter, domain.InitiateReturnInput{
		BookingID: req.BookingID,
		Condition: req.Condition,
		Comments:  req.Comments,
		Photos:    photoInputs(req.Photos),
	})
	if err != nil {
		return nil, grpcError(err)
	}
	return &ReturnReply{Return: ret}, nil
}

func (s *RentalService) GetReturn(ctx context.Context, req *GetReturnRequest) (*ReturnReply, error) {
	p, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	ret, err := s.returns.GetByID(ctx, p, req.ReturnID)
	if err != nil {
		return nil, grpcError(err)
	}
	return &ReturnReply{Return: ret}, nil
}

func (s *RentalService) ReviewReturn(ctx context.Context, req *ReviewReturnRequest) (*ReturnReply, error) {
	p, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	owner, err := domain.AsOwner(p)
	if err != nil {
		return nil, grpcError(err)
	}
	ret, err := s.inspections.ReviewReturn(ctx, owner, domain.ReviewReturnInput{
		ReturnID:            req.ReturnID,
		Condition:           req.Condition,
		Comments:            req.Comments,
		HasDamage:           req.HasDamage,
		DamageDetails:       req.DamageDetails,
		DamagePhotos:        photoInputs(req.DamagePhotos),
		EstimatedRepairCost: req.EstimatedRepairCost,
		DeductAmount:        req.DeductAmount,
		AdditionalNotes:     req.AdditionalNotes,
		Resolution:          req.Resolution,
		OwnerAddress:        req.OwnerAddress,
		ReturnMethod:        req.ReturnMethod,
	})
	if err != nil {
		return nil, grpcError(err)
	}
	return &ReturnReply{Return: ret}, nil
}

func (s *RentalService) ResolveDispute(ctx context.Context, req *ResolveDisputeRequest) (*ReturnReply, error) {
	p, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	arbitrator, err := domain.AsArbitrator(p)
	if err != nil {
		return nil, grpcError(err)
	}
	ret, err := s.inspections.ResolveDispute(ctx, arbitrator, domain.ResolveDisputeInput{
		ReturnID:     req.ReturnID,
		Resolution:   req.Resolution,
		RefundAmount: req.RefundAmount,
		Notes:        req.Notes,
	})
	if err != nil {
		return nil, grpcError(err)
	}
	return &ReturnReply{Return: ret}, nil
}

func (s *RentalService) ListDisputed(ctx context.Context, _ *ListDisputedRequest) (*ReturnList, error) {
	p, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	arbitrator, err := domain.AsArbitrator(p)
	if err != nil {
		return nil, grpcError(err)
	}
	returns, err := s.inspections.ListDisputed(ctx, arbitrator)
	if err != nil {
		return nil, grpcError(err)
	}
	return &ReturnList{Returns: nonNil(returns)}, nil
}
