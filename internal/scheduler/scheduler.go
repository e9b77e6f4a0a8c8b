package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/quoteflow/internal/auth/domain"
	"github.com/smallbiznis/quoteflow/internal/clock"
	obsmetrics "github.com/smallbiznis/quoteflow/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const jobPurgeSessions = "purge_sessions"

var ErrInvalidConfig = errors.New("scheduler: invalid config")

type Params struct {
	fx.In

	Log         *zap.Logger
	SessionRepo authdomain.SessionRepository
	GenID       *snowflake.Node
	Clock       clock.Clock
	Config      Config `optional:"true"`
}

// Scheduler runs periodic housekeeping jobs.
type Scheduler struct {
	log         *zap.Logger
	cfg         Config
	genID       *snowflake.Node
	clock       clock.Clock
	sessionRepo authdomain.SessionRepository
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.SessionRepo == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:         p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:         p.Config.withDefaults(),
		genID:       p.GenID,
		clock:       p.Clock,
		sessionRepo: p.SessionRepo,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name, batchSize)
	if owner {
		s.logJobStart(ctx, run)
	}
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	schedMetrics.AddProcessed(name, run.processedCount)
	if owner {
		if err != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	schedMetrics.IncJobError(name, err)
	// A deadline only means the backlog spills into the next tick.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		schedMetrics.IncJobTimeout(name)
		s.logger(ctx).Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{jobPurgeSessions, s.PurgeSessionsJob},
	}

	for _, job := range jobs {
		if !s.isJobEnabled(job.Name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, job.Name, s.cfg.BatchSize, s.cfg.JobTimeout, job.Run))
	}

	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now()
	schedMetrics := obsmetrics.Scheduler()

	for {
		schedMetrics.ObserveRunLoopLag(s.clock.Now().Sub(nextRun))
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Empty EnabledJobs enables every job.
func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// PurgeSessionsJob deletes sessions that expired or were revoked more than
// SessionRetention ago, one batch at a time.
func (s *Scheduler) PurgeSessionsJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, jobPurgeSessions, s.cfg.BatchSize)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}
	cutoff := s.clock.Now().Add(-s.cfg.SessionRetention)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		deleted, err := s.sessionRepo.PurgeSessions(ctx, cutoff, s.cfg.BatchSize)
		if err != nil {
			s.logSchedulerError(ctx, run, "scheduler.sessions.purge.failed", err)
			return err
		}
		run.AddProcessed(deleted)
		if deleted < int64(s.cfg.BatchSize) {
			return nil
		}
	}
}
