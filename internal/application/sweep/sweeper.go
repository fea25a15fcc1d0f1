// Package sweep periodically requeues versions stuck in PROCESSING after
// a worker died mid-pipeline, and triggers a periodic re-index of
// knowledge-base sources. Both are cron.v3 jobs on one scheduler,
// mirroring the teacher's cron-based trigger scheduler.
package sweep

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/swsreview/engine/internal/infrastructure/logger"
)

// StalledVersionFinder resets a stuck version's state so the pipeline
// picks it back up; implemented by internal/application/pipeline.
type StalledVersionFinder interface {
	RequeueStalled(ctx context.Context, olderThanSeconds int) (int, error)
}

// KBReindexer re-runs indexing for all registered knowledge-base sources.
type KBReindexer interface {
	ReindexAll(ctx context.Context) error
}

// Scheduler runs the stalled-version sweep and KB reindex on independent
// cron schedules.
type Scheduler struct {
	cron     *cron.Cron
	versions StalledVersionFinder
	kb       KBReindexer
	logger   *logger.Logger

	stalledAfterSeconds int
}

// NewScheduler creates a Scheduler. stalledAfterSeconds is how long a
// version may sit in PROCESSING with no progress update before the
// sweep requeues it.
func NewScheduler(versions StalledVersionFinder, kb KBReindexer, log *logger.Logger, stalledAfterSeconds int) *Scheduler {
	return &Scheduler{
		cron:                cron.New(),
		versions:            versions,
		kb:                  kb,
		logger:              log,
		stalledAfterSeconds: stalledAfterSeconds,
	}
}

// Start registers the jobs and starts the underlying cron runner.
// stalledSpec and reindexSpec are standard 5-field cron expressions.
func (s *Scheduler) Start(stalledSpec, reindexSpec string) error {
	if _, err := s.cron.AddFunc(stalledSpec, s.runStalledSweep); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(reindexSpec, s.runKBReindex); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the scheduler, waiting for any running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) runStalledSweep() {
	ctx := context.Background()
	n, err := s.versions.RequeueStalled(ctx, s.stalledAfterSeconds)
	if err != nil {
		s.logger.Error("stalled version sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("requeued stalled versions", "count", n)
	}
}

func (s *Scheduler) runKBReindex() {
	ctx := context.Background()
	if err := s.kb.ReindexAll(ctx); err != nil {
		s.logger.Error("kb reindex sweep failed", "error", err)
	}
}
