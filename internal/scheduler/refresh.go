// Package scheduler refreshes the dashboard summary on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bobmcallan/niftyscope/internal/common"
	"github.com/bobmcallan/niftyscope/internal/summary"
)

// DefaultTimezone is the NSE exchange timezone.
const DefaultTimezone = "Asia/Kolkata"

// refreshTimeout bounds one scheduled refresh.
const refreshTimeout = 2 * time.Minute

// Refresher is anything that can refresh itself, such as the summary model.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler runs Refresh on a five-field cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	target   Refresher
	schedule string
	logger   *common.Logger
}

// New parses schedule in timezone (DefaultTimezone when empty).
// An empty schedule returns nil, nil: scheduling is disabled.
func New(schedule, timezone string, target Refresher, logger *common.Logger) (*Scheduler, error) {
	if schedule == "" {
		return nil, nil
	}
	if timezone == "" {
		timezone = DefaultTimezone
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}

	s := &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		target:   target,
		schedule: schedule,
		logger:   logger,
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins running the schedule in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Str("schedule", s.schedule).Str("timezone", s.cron.Location().String()).Msg("Summary refresh scheduler started")
}

// Stop stops the schedule and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Next returns the next scheduled run time.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Schedule.Next(time.Now().In(s.cron.Location()))
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	start := time.Now()
	if err := s.target.Refresh(ctx); err != nil {
		// A manual refresh overtaking this one is not a failure.
		if errors.Is(err, summary.ErrSuperseded) {
			return
		}
		s.logger.Warn().Err(err).Msg("Scheduled summary refresh failed")
		return
	}
	s.logger.Debug().Dur("elapsed", time.Since(start)).Msg("Scheduled summary refresh complete")
}
