package models

const (
	BookingStatusBooked    = "booked"
	BookingStatusReturning = "returning"
	BookingStatusReturned  = "returned"
	BookingStatusCancelled = "cancelled"
)

const (
	ReturnStatusPending     = "pending"
	ReturnStatusUnderReview = "under_review"
	ReturnStatusApproved    = "approved"
	ReturnStatusDisputed    = "disputed"
	ReturnStatusResolved    = "resolved"
)

const (
	ConditionExcellent = "excellent"
	ConditionGood      = "good"
	ConditionFair      = "fair"
	ConditionDamaged   = "damaged"
)

const (
	ResolutionFullRefund    = "full_refund"
	ResolutionPartialRefund = "partial_refund"
	ResolutionRenterPays    = "renter_pays"
)

const (
	PhotoKindReturn = "return"
	PhotoKindDamage = "damage"
)

const (
	// DefaultDepositTotal is the security deposit held for every rental.
	DefaultDepositTotal = 1000
	// MaxPhotosPerUpload caps files accepted in one multipart request.
	MaxPhotosPerUpload = 5
	// MaxPhotoSize is the per-file upload limit in bytes.
	MaxPhotoSize = 10 << 20
	// DefaultPhotoPrefix is the public path prefix of stored return photos.
	DefaultPhotoPrefix = "/uploads/returns"
	// WorkerQueueSize is the in-memory ledger queue capacity.
	WorkerQueueSize = 128
	// DefaultIdempotencyTTL in seconds.
	DefaultIdempotencyTTL = 24 * 60 * 60
	// RateLimitRequests per principal within RateLimitWindow seconds.
	RateLimitRequests = 60
	RateLimitWindow   = 60
	// DefaultPaginationSize is how many entries a bot list page shows.
	DefaultPaginationSize = 5
)

// ValidCondition reports whether c is one of the known garment conditions.
func ValidCondition(c string) bool {
	switch c {
	case ConditionExcellent, ConditionGood, ConditionFair, ConditionDamaged:
		return true
	}
	return false
}

// ValidResolution reports whether r is one of the refund outcome categories.
func ValidResolution(r string) bool {
	switch r {
	case ResolutionFullRefund, ResolutionPartialRefund, ResolutionRenterPays:
		return true
	}
	return false
}
