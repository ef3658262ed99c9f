package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/covid-dashboard/internal/pipeline"
	"github.com/robfig/cron/v3"
)

// Refresher rebuilds the dashboard dataset.
type Refresher interface {
	Refresh(ctx context.Context) (*pipeline.Dataset, error)
}

// Scheduler triggers dataset refreshes on a cron schedule.
type Scheduler struct {
	cron      *cron.Cron
	entry     cron.EntryID
	refresher Refresher
	timeout   time.Duration
	logger    *slog.Logger

	ctx context.Context
}

// New parses spec (standard five-field cron or a descriptor such as "@daily")
// and schedules refreshes. Each run is bounded by timeout. Overlapping runs
// are skipped.
func New(spec string, refresher Refresher, timeout time.Duration, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		refresher: refresher,
		timeout:   timeout,
		logger:    logger,
		ctx:       context.Background(),
	}
	id, err := s.cron.AddFunc(spec, s.run)
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_SCHEDULE %q: %w", spec, err)
	}
	s.entry = id
	return s, nil
}

// Start runs the schedule in the background until Stop. Runs derive from ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	s.logger.Info("refresh scheduler started", "next", s.Next())
}

// Stop halts the schedule and waits for a running refresh up to ctx's deadline.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("refresh still running at shutdown")
	}
}

// Next is the time of the next scheduled refresh, zero before Start.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	ds, err := s.refresher.Refresh(ctx)
	if err != nil {
		s.logger.Error("scheduled refresh failed", "error", err)
		return
	}
	s.logger.Info("scheduled refresh complete", "run_id", ds.RunID, "rows", ds.Rows)
}
