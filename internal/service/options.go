package service

import (
	"time"

	"wardrobe/internal/clock"
	"wardrobe/internal/models"
)

type settings struct {
	clock        clock.Clock
	deposit      int64
	overdueGrace time.Duration
}

// Option tunes a rental service.
type Option func(*settings)

// WithClock replaces the system clock.
func WithClock(c clock.Clock) Option {
	return func(s *settings) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithDeposit overrides the security deposit held per rental.
func WithDeposit(total int64) Option {
	return func(s *settings) {
		if total > 0 {
			s.deposit = total
		}
	}
}

// WithOverdueGrace sets how long after its end date a booking may stay out
// before it is reported overdue.
func WithOverdueGrace(d time.Duration) Option {
	return func(s *settings) {
		if d >= 0 {
			s.overdueGrace = d
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		clock:   clock.NewSystem(),
		deposit: models.DefaultDepositTotal,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
