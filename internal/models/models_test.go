package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBookingIsActive(t *testing.T) {
	for status, want := range map[string]bool{
		BookingStatusBooked:    true,
		BookingStatusReturning: true,
		BookingStatusReturned:  false,
		BookingStatusCancelled: false,
	} {
		b := &Booking{Status: status}
		assert.Equal(t, want, b.IsActive(), status)
	}
}

func TestReturnIsTerminal(t *testing.T) {
	assert.True(t, (&Return{Status: ReturnStatusApproved}).IsTerminal())
	assert.True(t, (&Return{Status: ReturnStatusResolved}).IsTerminal())
	assert.False(t, (&Return{Status: ReturnStatusDisputed}).IsTerminal())
	assert.False(t, (&Return{Status: ReturnStatusPending}).IsTerminal())
}

func TestValidators(t *testing.T) {
	assert.True(t, ValidCondition("fair"))
	assert.False(t, ValidCondition("ruined"))
	assert.True(t, ValidResolution("renter_pays"))
	assert.False(t, ValidResolution("pending"))
}
