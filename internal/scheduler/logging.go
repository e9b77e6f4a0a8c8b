package scheduler

import (
	"context"
	"time"

	obslogger "github.com/smallbiznis/quoteflow/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/quoteflow/internal/observability/metrics"
	"go.uber.org/zap"
)

type jobRun struct {
	job            string
	runID          string
	batchSize      int
	startedAt      time.Time
	processedCount int64
	errorCount     int
}

type jobRunKey struct{}

func (r *jobRun) AddProcessed(count int64) {
	if r == nil || count <= 0 {
		return
	}
	r.processedCount += count
}

func (r *jobRun) IncError() {
	if r == nil {
		return
	}
	r.errorCount++
}

func (s *Scheduler) ensureJobRun(ctx context.Context, job string, batchSize int) (context.Context, *jobRun, bool) {
	if ctx == nil {
		ctx = context.Background()
	}
	if existing := jobRunFromContext(ctx); existing != nil {
		return ctx, existing, false
	}
	run := &jobRun{
		job:       job,
		runID:     s.genID.Generate().String(),
		batchSize: batchSize,
		startedAt: time.Now(),
	}
	return context.WithValue(ctx, jobRunKey{}, run), run, true
}

func jobRunFromContext(ctx context.Context) *jobRun {
	if ctx == nil {
		return nil
	}
	if run, ok := ctx.Value(jobRunKey{}).(*jobRun); ok {
		return run
	}
	return nil
}

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}

func (s *Scheduler) logJobStart(ctx context.Context, run *jobRun) {
	if run == nil {
		return
	}
	s.logger(ctx).Debug("scheduler.job.start",
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
		zap.Int("batch_size", run.batchSize),
	)
}

func (s *Scheduler) logJobFinish(ctx context.Context, run *jobRun) {
	if run == nil {
		return
	}
	fields := []zap.Field{
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
		zap.Int64("duration_ms", time.Since(run.startedAt).Milliseconds()),
		zap.Int64("processed_count", run.processedCount),
		zap.Int("error_count", run.errorCount),
	}
	log := s.logger(ctx)
	if run.errorCount > 0 {
		log.Warn("scheduler.job.finish", fields...)
		return
	}
	log.Info("scheduler.job.finish", fields...)
}

func (s *Scheduler) logSchedulerError(ctx context.Context, run *jobRun, msg string, err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	if run != nil {
		run.IncError()
	}
	baseFields := []zap.Field{
		zap.String("job", run.job),
		zap.String("reason", obsmetrics.ClassifyTxReason(err)),
		zap.Error(err),
	}
	s.logger(ctx).Error(msg, append(baseFields, fields...)...)
}
