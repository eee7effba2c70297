package domain

import "time"

type CreateBookingInput struct {
	ItemID    int64
	StartDate time.Time
	EndDate   time.Time
}

// PhotoInput is a reference already issued by photo storage.
type PhotoInput struct {
	URL         string
	Description string
}

type InitiateReturnInput struct {
	BookingID int64
	Condition string
	Comments  string
	Photos    []PhotoInput
}

type ReviewReturnInput struct {
	ReturnID            int64
	Condition           string
	Comments            string
	HasDamage           bool
	DamageDetails       string
	DamagePhotos        []PhotoInput
	EstimatedRepairCost int64
	DeductAmount        int64
	AdditionalNotes     string
	Resolution          string
	OwnerAddress        string
	ReturnMethod        string
}

type ResolveDisputeInput struct {
	ReturnID     int64
	Resolution   string
	RefundAmount *int64
	Notes        string
}
