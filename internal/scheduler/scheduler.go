package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/hpp/internal/config"
	"github.com/mamadbah2/hpp/internal/domain/models"
	"github.com/mamadbah2/hpp/internal/service/jobs"
)

// JobRunner runs the two maintenance jobs.
type JobRunner interface {
	RunSnapshots(ctx context.Context) (*models.SnapshotRunReport, error)
	RunArchival(ctx context.Context) (*models.ArchivalReport, error)
}

// Notifier receives run outcomes.
type Notifier interface {
	NotifySnapshotRun(ctx context.Context, report *models.SnapshotRunReport, runErr error)
	NotifyArchivalRun(ctx context.Context, report *models.ArchivalReport, runErr error)
}

// Scheduler triggers the jobs on their cron schedules.
type Scheduler struct {
	cron     *cron.Cron
	runner   JobRunner
	notifier Notifier
	cfg      config.ScheduleConfig
	logger   *zap.Logger
}

// NewScheduler creates a new scheduler instance. notifier may be nil.
func NewScheduler(cfg config.ScheduleConfig, runner JobRunner, notifier Notifier, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	// Standard 5-field expressions: min, hour, dom, month, dow.
	c := cron.New(cron.WithLocation(loc))

	return &Scheduler{
		cron:     c,
		runner:   runner,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Start registers both jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.SnapshotCron, s.runSnapshots); err != nil {
		return fmt.Errorf("schedule snapshot job %q: %w", s.cfg.SnapshotCron, err)
	}
	if _, err := s.cron.AddFunc(s.cfg.ArchiveCron, s.runArchival); err != nil {
		return fmt.Errorf("schedule archival job %q: %w", s.cfg.ArchiveCron, err)
	}

	s.logger.Info("starting scheduler",
		zap.String("snapshot_cron", s.cfg.SnapshotCron),
		zap.String("archive_cron", s.cfg.ArchiveCron),
		zap.String("timezone", s.cfg.Timezone))
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) {
	s.logger.Info("stopping scheduler")
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stopped before running jobs finished")
	}
}

func (s *Scheduler) runSnapshots() {
	ctx, cancel := jobContext(s.cfg.SnapshotTimeout)
	defer cancel()

	s.logger.Info("scheduled snapshot run triggered")
	report, err := s.runner.RunSnapshots(ctx)
	if errors.Is(err, jobs.ErrJobAlreadyRunning) {
		return
	}
	if err != nil {
		s.logger.Error("scheduled snapshot run failed", zap.Error(err))
	}
	if s.notifier != nil {
		s.notifier.NotifySnapshotRun(context.Background(), report, err)
	}
}

func (s *Scheduler) runArchival() {
	ctx, cancel := jobContext(s.cfg.ArchiveTimeout)
	defer cancel()

	s.logger.Info("scheduled archival run triggered")
	report, err := s.runner.RunArchival(ctx)
	if errors.Is(err, jobs.ErrJobAlreadyRunning) {
		return
	}
	if err != nil {
		s.logger.Error("scheduled archival run failed", zap.Error(err))
	}
	if s.notifier != nil {
		s.notifier.NotifyArchivalRun(context.Background(), report, err)
	}
}

// jobContext bounds a run when timeout is positive.
func jobContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(context.Background(), timeout)
	}
	return context.WithCancel(context.Background())
}
