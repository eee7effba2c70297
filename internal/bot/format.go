package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"wardrobe/internal/domain"
	"wardrobe/internal/models"
)

const dateLayout = "02.01.2006"

func formatReturnLine(ret *models.Return) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("⚖️ Return #%d (booking #%d)\n", ret.ID, ret.BookingID))
	sb.WriteString(fmt.Sprintf("   item #%d, renter %d, owner %d\n", ret.ItemID, ret.RenterID, ret.OwnerID))
	if ret.OwnerInspection != nil && ret.OwnerInspection.DamageReport.DamageDetails != "" {
		sb.WriteString(fmt.Sprintf("   💥 %s\n", ret.OwnerInspection.DamageReport.DamageDetails))
	}
	return sb.String()
}

func formatReturnDetail(ret *models.Return) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Return #%d for booking #%d\n", ret.ID, ret.BookingID))
	sb.WriteString(fmt.Sprintf("Status: %s\n", ret.Status))
	sb.WriteString(fmt.Sprintf("Item #%d, renter %d, owner %d\n", ret.ItemID, ret.RenterID, ret.OwnerID))
	sb.WriteString(fmt.Sprintf("Initiated: %s\n\n", ret.ReturnInitiatedAt.Format(dateLayout)))

	sb.WriteString(fmt.Sprintf("Renter says: %s", ret.RenterAssessment.Condition))
	if ret.RenterAssessment.Comments != "" {
		sb.WriteString(fmt.Sprintf(" (%s)", ret.RenterAssessment.Comments))
	}
	sb.WriteString(fmt.Sprintf("\nReturn photos: %d\n", len(ret.Photos)))

	if insp := ret.OwnerInspection; insp != nil {
		sb.WriteString(fmt.Sprintf("\nOwner says: %s", insp.Condition))
		if insp.Comments != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", insp.Comments))
		}
		sb.WriteString("\n")
		report := insp.DamageReport
		if report.HasDamage {
			sb.WriteString(fmt.Sprintf("Damage: %s\n", report.DamageDetails))
			sb.WriteString(fmt.Sprintf("Estimated repair: %d\n", report.EstimatedRepairCost))
			sb.WriteString(fmt.Sprintf("Damage photos: %d\n", len(report.DamagePhotos)))
		}
	}

	if res := ret.Resolution; res != nil {
		sb.WriteString(fmt.Sprintf("\nProposed: %s, refund %d\n", res.Resolution, res.RefundAmount))
		if res.ReturnMethod != "" {
			sb.WriteString(fmt.Sprintf("Return method: %s\n", res.ReturnMethod))
		}
	}
	return sb.String()
}

func formatOverdue(bookings []*models.Booking, now time.Time) string {
	if len(bookings) == 0 {
		return "No overdue rentals."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("⏰ Overdue rentals: %d\n\n", len(bookings)))
	for _, booking := range bookings {
		days := int(now.Sub(booking.EndDate).Hours() / 24)
		sb.WriteString(fmt.Sprintf("Booking #%d, %s, renter %d\n", booking.ID, itemLabel(booking), booking.RenterID))
		sb.WriteString(fmt.Sprintf("   ended %s, %d day(s) ago\n", booking.EndDate.Format(dateLayout), days))
	}
	return sb.String()
}

func itemLabel(booking *models.Booking) string {
	if booking.ItemName != "" {
		return booking.ItemName
	}
	return fmt.Sprintf("item #%d", booking.ItemID)
}

// parseResolveArgs reads "<return_id> <resolution> <refund> [notes...]".
func parseResolveArgs(args string) (domain.ResolveDisputeInput, error) {
	fields := strings.Fields(args)
	if len(fields) < 3 {
		return domain.ResolveDisputeInput{}, fmt.Errorf("%w: usage /resolve <return_id> <resolution> <refund> [notes]", domain.ErrValidation)
	}

	returnID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || returnID <= 0 {
		return domain.ResolveDisputeInput{}, fmt.Errorf("%w: return id must be a positive number", domain.ErrValidation)
	}
	resolution := strings.ToLower(fields[1])
	if !models.ValidResolution(resolution) {
		return domain.ResolveDisputeInput{}, fmt.Errorf("%w: resolution must be one of %s, %s, %s", domain.ErrValidation,
			models.ResolutionFullRefund, models.ResolutionPartialRefund, models.ResolutionRenterPays)
	}
	refund, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return domain.ResolveDisputeInput{}, fmt.Errorf("%w: refund must be a number", domain.ErrValidation)
	}

	return domain.ResolveDisputeInput{
		ReturnID:     returnID,
		Resolution:   resolution,
		RefundAmount: &refund,
		Notes:        strings.Join(fields[3:], " "),
	}, nil
}
