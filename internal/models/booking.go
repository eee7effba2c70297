package models

import "time"

type Booking struct {
	ID        int64     `json:"id"`
	RenterID  int64     `json:"renter_id"`
	ItemID    int64     `json:"item_id"`
	OwnerID   int64     `json:"owner_id"`
	ItemName  string    `json:"item_name,omitempty"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Status    string    `json:"status"` // booked, returning, returned, cancelled
	ReturnID  *int64    `json:"return_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

// IsActive reports whether the booking still holds its item.
func (b *Booking) IsActive() bool {
	return b.Status == BookingStatusBooked || b.Status == BookingStatusReturning
}
