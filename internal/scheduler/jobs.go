package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wardrobe/internal/clock"
	"wardrobe/internal/domain"
	"wardrobe/internal/events"
	"wardrobe/internal/logging"
	"wardrobe/internal/metrics"
	"wardrobe/internal/models"

	"github.com/rs/zerolog"
)

const jobTimeout = 5 * time.Minute

type OverdueLister interface {
	ListOverdue(ctx context.Context, asOf time.Time) ([]*models.Booking, error)
}

type BackupRunner interface {
	Run(ctx context.Context) error
}

type ReportWriter interface {
	SaveFile(ctx context.Context) (string, error)
}

// Jobs holds the collaborators of every scheduled job. Nil collaborators
// turn the matching job, or its optional step, into a no-op.
type Jobs struct {
	Bookings  OverdueLister
	Notifier  domain.Notifier
	Publisher domain.EventPublisher
	Backup    BackupRunner
	Reports   ReportWriter
	Clock     clock.Clock
}

// JobRunner executes jobs with a timeout and panic recovery.
type JobRunner struct {
	jobs   Jobs
	logger *zerolog.Logger
}

func NewJobRunner(jobs Jobs, logger *zerolog.Logger) *JobRunner {
	if jobs.Clock == nil {
		jobs.Clock = clock.NewSystem()
	}
	return &JobRunner{jobs: jobs, logger: logging.Component(logger, "scheduler")}
}

func (jr *JobRunner) runWithRecovery(jobName string, fn func(ctx context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			jr.logger.Error().Str("job", jobName).Interface("panic", r).Msg("job panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	if err := fn(ctx); err != nil {
		jr.logger.Error().Err(err).Str("job", jobName).Dur("took", time.Since(start)).Msg("job failed")
		return
	}
	jr.logger.Info().Str("job", jobName).Dur("took", time.Since(start)).Msg("job completed")
}

// CheckOverdueBookings records the overdue gauge, publishes booking_overdue
// for each booking and sends one digest to the desk.
func (jr *JobRunner) CheckOverdueBookings() {
	jr.runWithRecovery("overdue_bookings", jr.checkOverdue)
}

func (jr *JobRunner) checkOverdue(ctx context.Context) error {
	if jr.jobs.Bookings == nil {
		return nil
	}
	overdue, err := jr.jobs.Bookings.ListOverdue(ctx, jr.jobs.Clock.Now())
	if err != nil {
		return fmt.Errorf("list overdue bookings: %w", err)
	}
	metrics.SetOverdue(len(overdue))
	if len(overdue) == 0 {
		return nil
	}

	if jr.jobs.Publisher != nil {
		for _, b := range overdue {
			if err := jr.jobs.Publisher.PublishJSON(events.EventBookingOverdue, events.NewBookingPayload(b, "system", 0)); err != nil {
				jr.logger.Error().Err(err).Int64("booking_id", b.ID).Msg("publish overdue event")
			}
		}
	}

	if jr.jobs.Notifier != nil {
		if err := jr.jobs.Notifier.NotifyDesk(ctx, OverdueDigest(overdue)); err != nil {
			return fmt.Errorf("notify desk: %w", err)
		}
	}
	return nil
}

// RunBackup snapshots the database and prunes old snapshots.
func (jr *JobRunner) RunBackup() {
	jr.runWithRecovery("backup", func(ctx context.Context) error {
		if jr.jobs.Backup == nil {
			return nil
		}
		return jr.jobs.Backup.Run(ctx)
	})
}

// WriteReport saves the desk report into the export directory.
func (jr *JobRunner) WriteReport() {
	jr.runWithRecovery("desk_report", func(ctx context.Context) error {
		if jr.jobs.Reports == nil {
			return nil
		}
		path, err := jr.jobs.Reports.SaveFile(ctx)
		if err != nil {
			return err
		}
		if jr.jobs.Notifier != nil {
			if err := jr.jobs.Notifier.NotifyDesk(ctx, "Weekly desk report saved: "+path); err != nil {
				jr.logger.Warn().Err(err).Msg("notify desk about report")
			}
		}
		return nil
	})
}

// OverdueDigest formats overdue bookings as one desk message.
func OverdueDigest(bookings []*models.Booking) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Overdue bookings: %d\n", len(bookings))
	for _, b := range bookings {
		name := b.ItemName
		if name == "" {
			name = fmt.Sprintf("item %d", b.ItemID)
		}
		fmt.Fprintf(&sb, "#%d %s, renter %d, due %s\n", b.ID, name, b.RenterID, b.EndDate.Format("2006-01-02"))
	}
	return strings.TrimRight(sb.String(), "\n")
}
