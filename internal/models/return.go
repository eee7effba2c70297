package models

import "time"

type Photo struct {
	URL         string    `json:"url"`
	Description string    `json:"description,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

type RenterAssessment struct {
	Condition   string    `json:"condition"`
	Comments    string    `json:"comments,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type DamageReport struct {
	HasDamage           bool    `json:"has_damage"`
	DamageDetails       string  `json:"damage_details,omitempty"`
	DamagePhotos        []Photo `json:"damage_photos,omitempty"`
	EstimatedRepairCost int64   `json:"estimated_repair_cost"`
}

type OwnerInspection struct {
	InspectedBy  int64        `json:"inspected_by"`
	InspectedAt  time.Time    `json:"inspected_at"`
	Condition    string       `json:"condition"`
	Comments     string       `json:"comments,omitempty"`
	DamageReport DamageReport `json:"damage_report"`
}

// Resolution is attached by the owner at review time (logistics and the
// deduction outcome) and replaced by the arbitrator when a dispute is settled.
type Resolution struct {
	ResolvedBy   int64      `json:"resolved_by,omitempty"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
	Resolution   string     `json:"resolution"`
	RefundAmount int64      `json:"refund_amount"`
	Notes        string     `json:"notes,omitempty"`
	OwnerAddress string     `json:"owner_address,omitempty"`
	ReturnMethod string     `json:"return_method,omitempty"`
}

type Return struct {
	ID                int64            `json:"id"`
	BookingID         int64            `json:"booking_id"`
	ItemID            int64            `json:"item_id"`
	RenterID          int64            `json:"renter_id"`
	OwnerID           int64            `json:"owner_id"`
	Photos            []Photo          `json:"photos"`
	RenterAssessment  RenterAssessment `json:"renter_assessment"`
	OwnerInspection   *OwnerInspection `json:"owner_inspection,omitempty"`
	Status            string           `json:"status"`
	Resolution        *Resolution      `json:"resolution,omitempty"`
	ReturnInitiatedAt time.Time        `json:"return_initiated_at"`
	ReturnCompletedAt *time.Time       `json:"return_completed_at,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
	Version           int64            `json:"version"`
}

// IsTerminal reports whether the return reached an accepted end state.
func (r *Return) IsTerminal() bool {
	return r.Status == ReturnStatusApproved || r.Status == ReturnStatusResolved
}
