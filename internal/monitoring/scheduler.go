package monitoring

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// ExpiredSessionPurger removes sessions whose lifetime has ended.
type ExpiredSessionPurger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Scheduler periodically clears expired server-side sessions.
type Scheduler struct {
	purger  ExpiredSessionPurger
	cron    *cron.Cron
	timeout time.Duration
}

// NewScheduler creates a scheduler that runs a sweep on the given cron
// schedule (standard five fields or descriptors such as "@every 1h").
func NewScheduler(purger ExpiredSessionPurger, schedule string) (*Scheduler, error) {
	s := &Scheduler{
		purger:  purger,
		cron:    cron.New(),
		timeout: 30 * time.Second,
	}
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, err
	}
	return s, nil
}

// Run starts the scheduler in its own goroutine.
func (s *Scheduler) Run() {
	log.Info().Msg("Starting expired session sweeper")
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("Stopped expired session sweeper")
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.purger.DeleteExpired(ctx, time.Now())
	if err != nil {
		log.Error().Err(err).Msg("Failed to clear expired sessions")
		return
	}
	if n > 0 {
		log.Debug().Int64("removed", n).Msg("Cleared expired sessions")
	}
}
