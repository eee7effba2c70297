package scheduler

import (
	"fmt"
	"time"

	"wardrobe/internal/config"
	"wardrobe/internal/logging"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler manages cron job scheduling.
type Scheduler struct {
	cron   *cron.Cron
	jobs   *JobRunner
	logger *zerolog.Logger
}

// NewScheduler registers the jobs of cfg. Specs use six fields (with
// seconds) in UTC; an empty spec disables its job.
func NewScheduler(cfg config.SchedulerConfig, jobs *JobRunner, logger *zerolog.Logger) (*Scheduler, error) {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)
	s := &Scheduler{cron: c, jobs: jobs, logger: logging.Component(logger, "scheduler")}

	entries := []struct {
		name string
		spec string
		fn   func()
	}{
		{"overdue_bookings", cfg.OverdueSpec, jobs.CheckOverdueBookings},
		{"backup", cfg.BackupSpec, jobs.RunBackup},
		{"desk_report", cfg.ReportSpec, jobs.WriteReport},
	}
	for _, e := range entries {
		if e.spec == "" {
			s.logger.Info().Str("job", e.name).Msg("job disabled")
			continue
		}
		if _, err := c.AddFunc(e.spec, e.fn); err != nil {
			return nil, fmt.Errorf("register %s job %q: %w", e.name, e.spec, err)
		}
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Int("jobs", len(s.cron.Entries())).Msg("cron scheduler started")
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("cron scheduler stopped")
}

// Entries is the number of registered jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
