// Package scheduler drives watch mode: periodic relabelling runs on a cron
// schedule so an in-progress tournament's reports stay current as new
// replays land and new sets complete.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/replay-labeller/internal/labeller"
)

// RunHook is called after each scheduled run completes successfully.
type RunHook func(result *labeller.Result)

// Scheduler repeatedly runs the labelling pipeline.
type Scheduler struct {
	cron       *cron.Cron
	svc        *labeller.Service
	opts       labeller.Options
	runTimeout time.Duration
	hook       RunHook
	logger     *logrus.Logger

	mu        sync.RWMutex
	isRunning bool
	jobID     cron.EntryID
	scheduled bool
}

// NewScheduler creates a scheduler around a labelling service. hook may be
// nil.
func NewScheduler(svc *labeller.Service, opts labeller.Options, hook RunHook, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		svc:        svc,
		opts:       opts,
		runTimeout: 15 * time.Minute,
		hook:       hook,
		logger:     logger,
	}
}

// Schedule registers the relabelling job under a cron expression.
func (s *Scheduler) Schedule(cronExpression string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}
	if s.scheduled {
		return fmt.Errorf("relabelling job already scheduled")
	}

	jobFunc := func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
		defer cancel()

		s.logger.WithField("tournaments", s.opts.TournamentIDs).Info("Starting scheduled relabelling run")

		result, err := s.svc.Run(ctx, s.opts)
		if err != nil {
			s.logger.WithError(err).Error("Scheduled relabelling run failed")
			return
		}

		s.logger.WithFields(logrus.Fields{
			"labelled": result.Assignment.LabelledCount(),
			"missed":   result.Summary.MissedCount,
		}).Info("Scheduled relabelling run completed")

		if s.hook != nil {
			s.hook(result)
		}
	}

	entryID, err := s.cron.AddFunc(cronExpression, jobFunc)
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobID = entryID
	s.scheduled = true
	s.logger.WithField("schedule", cronExpression).Info("Scheduled relabelling job")
	return nil
}

// Start begins executing the scheduled job.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if !s.scheduled {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.Info("Scheduler started")
	return nil
}

// Stop waits for any in-flight run to finish, then stops the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	<-s.cron.Stop().Done()
	s.isRunning = false
	s.logger.Info("Scheduler stopped")
	return nil
}

// IsRunning reports whether the scheduler is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns the next scheduled run time, or the zero time when the
// scheduler is idle.
func (s *Scheduler) NextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || !s.scheduled {
		return time.Time{}
	}
	entry := s.cron.Entry(s.jobID)
	if !entry.Valid() {
		return time.Time{}
	}
	return entry.Next
}
