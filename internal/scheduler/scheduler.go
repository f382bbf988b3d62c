// Package scheduler runs the periodic reminder scan and automatic backups.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/starford/lapse/internal/lifecycle"
)

// Default cron specs.
const (
	DefaultReminderSpec = "@every 1h"
	DefaultBackupSpec   = "@daily"
)

// Tracker is the part of the tracker service the scheduler drives.
type Tracker interface {
	CheckReminders(ctx context.Context) (lifecycle.ReminderSummary, bool)
	AutoBackup(ctx context.Context) (bool, error)
}

// Scheduler manages the tracker's cron jobs.
type Scheduler struct {
	cron    *cron.Cron
	tracker Tracker
	logger  *slog.Logger
}

// New creates a scheduler. An empty spec disables that job.
func New(t Tracker, reminderSpec, backupSpec string, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		cron:    cron.New(),
		tracker: t,
		logger:  logger,
	}
	if reminderSpec != "" {
		if _, err := s.cron.AddFunc(reminderSpec, s.scanReminders); err != nil {
			return nil, fmt.Errorf("scheduler: reminder spec %q: %w", reminderSpec, err)
		}
	}
	if backupSpec != "" {
		if _, err := s.cron.AddFunc(backupSpec, s.autoBackup); err != nil {
			return nil, fmt.Errorf("scheduler: backup spec %q: %w", backupSpec, err)
		}
	}
	return s, nil
}

// Jobs returns the number of scheduled jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// Run performs one reminder scan, starts the cron loop and blocks until ctx
// is cancelled. Running jobs are allowed to finish before it returns.
func (s *Scheduler) Run(ctx context.Context) error {
	s.scanReminders()
	s.cron.Start()
	s.logger.Info("scheduler: started", slog.Int("jobs", s.Jobs()))
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler: stopped")
	return nil
}

func (s *Scheduler) scanReminders() {
	sum, notified := s.tracker.CheckReminders(context.Background())
	s.logger.Debug("reminder: scan",
		slog.Int("expiring_soon", sum.ExpiringSoon),
		slog.Int("expired", sum.Expired),
		slog.Bool("notified", notified),
	)
}

func (s *Scheduler) autoBackup() {
	wrote, err := s.tracker.AutoBackup(context.Background())
	if err != nil {
		s.logger.Error("backup: auto backup failed", slog.String("error", err.Error()))
		return
	}
	if wrote {
		s.logger.Info("backup: auto backup written")
	}
}
