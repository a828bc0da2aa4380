/**
 * @description
 * Cron scheduler setup for scheduled jobs.
 */
package app

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/agpatowary/mind-mortal-clone-sub001/internal/config"
)

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron   *cron.Cron
	jobs   *Jobs
	logger *slog.Logger
	config config.Config
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(jobs *Jobs, logger *slog.Logger, cfg config.Config) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:   c,
		jobs:   jobs,
		logger: logger,
		config: cfg,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.config.MessageDispatchSchedule, s.jobs.DispatchDueMessages); err != nil {
		s.logger.Error("failed to schedule message dispatch job", "error", err)
	} else {
		s.logger.Info("scheduled message dispatch job", "schedule", s.config.MessageDispatchSchedule)
	}

	if _, err := s.cron.AddFunc(s.config.SubscriptionLapseSchedule, s.jobs.LapseExpiredSubscriptions); err != nil {
		s.logger.Error("failed to schedule subscription lapse job", "error", err)
	} else {
		s.logger.Info("scheduled subscription lapse job", "schedule", s.config.SubscriptionLapseSchedule)
	}

	s.cron.Start()
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
