package service

import (
	"context"
	"testing"

	"wardrobe/internal/domain"
	"wardrobe/internal/events"
	"wardrobe/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitiateReturn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner, renter := domain.Owner{ID: 1}, domain.Renter{ID: 2}
	item := env.item(t, owner, "Item Y")
	booking := env.book(t, renter, item.ID)

	ret, err := env.returns.InitiateReturn(ctx, renter, domain.InitiateReturnInput{
		BookingID: booking.ID,
		Comments:  "worn once",
		Photos:    []domain.PhotoInput{{URL: "/uploads/returns/1.jpg", Description: "1.jpg"}},
	})
	require.NoError(t, err)

	assert.Equal(t, models.ReturnStatusPending, ret.Status)
	assert.Equal(t, owner.ID, ret.OwnerID)
	assert.Equal(t, item.ID, ret.ItemID)
	assert.Equal(t, models.ConditionGood, ret.RenterAssessment.Condition)
	assert.Equal(t, "worn once", ret.RenterAssessment.Comments)
	assert.True(t, ret.RenterAssessment.SubmittedAt.Equal(testNow))
	require.Len(t, ret.Photos, 1)
	assert.Equal(t, "/uploads/returns/1.jpg", ret.Photos[0].URL)

	assert.Equal(t, models.BookingStatusReturning, env.bookingStatus(t, booking.ID))
	assert.False(t, env.available(t, item.ID))
	assert.Contains(t, env.events.seen(), events.EventReturnInitiated)
}

func TestInitiateReturnTwiceIsDuplicate(t *testing.T) {
	env := newTestEnv(t)
	renter := domain.Renter{ID: 2}
	booking := env.book(t, renter, env.item(t, domain.Owner{ID: 1}, "Gown").ID)
	first := env.initiate(t, renter, booking.ID)

	_, err := env.returns.InitiateReturn(context.Background(), renter, domain.InitiateReturnInput{
		BookingID: booking.ID,
		Condition: models.ConditionExcellent,
		Photos:    []domain.PhotoInput{{URL: "/uploads/returns/other.jpg"}, {URL: "/uploads/returns/more.jpg"}},
	})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	ret, err := env.returns.GetByBooking(context.Background(), renter, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, ret.ID)
	assert.Len(t, ret.Photos, 1)
}

func TestInitiateReturnErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	renter := domain.Renter{ID: 2}
	item := env.item(t, domain.Owner{ID: 1}, "Cape")
	booking := env.book(t, renter, item.ID)
	photos := []domain.PhotoInput{{URL: "/uploads/returns/x.jpg"}}

	_, err := env.returns.InitiateReturn(ctx, renter, domain.InitiateReturnInput{BookingID: booking.ID})
	assert.ErrorIs(t, err, domain.ErrValidation, "photos are required")

	_, err = env.returns.InitiateReturn(ctx, renter, domain.InitiateReturnInput{BookingID: booking.ID, Condition: "ruined", Photos: photos})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = env.returns.InitiateReturn(ctx, renter, domain.InitiateReturnInput{BookingID: 999, Photos: photos})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.returns.InitiateReturn(ctx, domain.Renter{ID: 77}, domain.InitiateReturnInput{BookingID: booking.ID, Photos: photos})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = env.bookings.CancelBooking(ctx, renter, booking.ID)
	require.NoError(t, err)
	_, err = env.returns.InitiateReturn(ctx, renter, domain.InitiateReturnInput{BookingID: booking.ID, Photos: photos})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestAddPhotos(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner, renter := domain.Owner{ID: 1}, domain.Renter{ID: 2}
	booking := env.book(t, renter, env.item(t, owner, "Jacket").ID)
	ret := env.initiate(t, renter, booking.ID)

	updated, err := env.returns.AddPhotos(ctx, renter, ret.ID, []domain.PhotoInput{{URL: "/uploads/returns/2.jpg"}})
	require.NoError(t, err)
	assert.Len(t, updated.Photos, 2)

	updated, err = env.returns.AddPhotos(ctx, owner, ret.ID, []domain.PhotoInput{{URL: "/uploads/returns/3.jpg"}})
	require.NoError(t, err)
	assert.Len(t, updated.Photos, 3)
	assert.Equal(t, "/uploads/returns/front.jpg", updated.Photos[0].URL)

	_, err = env.returns.AddPhotos(ctx, domain.Owner{ID: 50}, ret.ID, []domain.PhotoInput{{URL: "/x.jpg"}})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = env.returns.AddPhotos(ctx, domain.Arbitrator{ID: 9}, ret.ID, []domain.PhotoInput{{URL: "/x.jpg"}})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = env.returns.AddPhotos(ctx, renter, ret.ID, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = env.inspection.ReviewReturn(ctx, owner, domain.ReviewReturnInput{ReturnID: ret.ID})
	require.NoError(t, err)
	_, err = env.returns.AddPhotos(ctx, renter, ret.ID, []domain.PhotoInput{{URL: "/uploads/returns/late.jpg"}})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestReturnReadAuthorization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner, renter := domain.Owner{ID: 1}, domain.Renter{ID: 2}
	booking := env.book(t, renter, env.item(t, owner, "Boots").ID)
	ret := env.initiate(t, renter, booking.ID)

	got, err := env.returns.GetByID(ctx, owner, ret.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, got.BookingID)

	_, err = env.returns.GetByID(ctx, domain.Renter{ID: 3}, ret.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = env.returns.GetByBooking(ctx, domain.Owner{ID: 3}, booking.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = env.returns.GetByID(ctx, owner, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	forOwner, err := env.returns.ListForOwner(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, forOwner, 1)
	forRenter, err := env.returns.ListForRenter(ctx, renter)
	require.NoError(t, err)
	assert.Len(t, forRenter, 1)
	none, err := env.returns.ListForRenter(ctx, domain.Renter{ID: 3})
	require.NoError(t, err)
	assert.Empty(t, none)
}
