package service

import "wardrobe/internal/models"

// ClassifyRefund splits the deposit after a deduction. The category depends
// only on the deduction: none is a full refund, less than half the deposit is
// a partial refund, anything else is paid by the renter. The amount is not
// clamped, so a deduction above the deposit yields a negative refund.
func ClassifyRefund(deposit, deduction int64) (int64, string) {
	amount := deposit - deduction
	switch {
	case deduction == 0:
		return amount, models.ResolutionFullRefund
	case deduction > 0 && deduction*2 < deposit:
		return amount, models.ResolutionPartialRefund
	default:
		return amount, models.ResolutionRenterPays
	}
}
