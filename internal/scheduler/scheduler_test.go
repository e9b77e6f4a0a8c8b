package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	authdomain "github.com/smallbiznis/quoteflow/internal/auth/domain"
	authrepository "github.com/smallbiznis/quoteflow/internal/auth/repository"
	"github.com/smallbiznis/quoteflow/internal/clock"
	obsmetrics "github.com/smallbiznis/quoteflow/internal/observability/metrics"
	"github.com/smallbiznis/quoteflow/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var now = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func useRegistry(t *testing.T) *prometheus.Registry {
	t.Helper()
	registry := prometheus.NewRegistry()
	oldRegisterer := prometheus.DefaultRegisterer
	prometheus.DefaultRegisterer = registry
	obsmetrics.ResetSchedulerMetricsForTest()
	t.Cleanup(func() {
		prometheus.DefaultRegisterer = oldRegisterer
		obsmetrics.ResetSchedulerMetricsForTest()
	})
	return registry
}

func newScheduler(t *testing.T, cfg Config) (*Scheduler, *gorm.DB, *prometheus.Registry) {
	t.Helper()
	registry := useRegistry(t)
	db := dbtest.New(t, &authdomain.Session{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	_, sessions := authrepository.New(db)

	s, err := New(Params{
		Log:         zap.NewNop(),
		SessionRepo: sessions,
		GenID:       node,
		Clock:       clock.NewFakeClock(now),
		Config:      cfg,
	})
	require.NoError(t, err)
	return s, db, registry
}

func insertSession(t *testing.T, db *gorm.DB, id int64, expiresAt time.Time, revokedAt *time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&authdomain.Session{
		ID:               snowflake.ID(id),
		UserID:           1,
		SessionTokenHash: snowflake.ID(id).String(),
		ExpiresAt:        expiresAt,
		RevokedAt:        revokedAt,
		CreatedAt:        expiresAt.Add(-24 * time.Hour),
		LastSeenAt:       expiresAt.Add(-time.Hour),
	}).Error)
}

func remainingIDs(t *testing.T, db *gorm.DB) []int64 {
	t.Helper()
	var ids []int64
	require.NoError(t, db.Model(&authdomain.Session{}).Order("id").Pluck("id", &ids).Error)
	return ids
}

func TestPurgeSessionsJobKeepsRecentAndLiveSessions(t *testing.T) {
	s, db, _ := newScheduler(t, Config{SessionRetention: 24 * time.Hour, BatchSize: 2})

	longRevoked := now.Add(-72 * time.Hour)
	recentlyRevoked := now.Add(-time.Hour)
	insertSession(t, db, 1, now.Add(-48*time.Hour), nil)
	insertSession(t, db, 2, now.Add(-30*time.Hour), nil)
	insertSession(t, db, 3, now.Add(-25*time.Hour), nil)
	insertSession(t, db, 4, now.Add(time.Hour), &longRevoked)
	insertSession(t, db, 5, now.Add(-time.Hour), nil)
	insertSession(t, db, 6, now.Add(time.Hour), &recentlyRevoked)
	insertSession(t, db, 7, now.Add(time.Hour), nil)

	require.NoError(t, s.RunOnce(context.Background()))

	assert.Equal(t, []int64{5, 6, 7}, remainingIDs(t, db))
}

func TestRunOnceSkipsDisabledJobs(t *testing.T) {
	s, db, _ := newScheduler(t, Config{EnabledJobs: []string{"something_else"}})
	insertSession(t, db, 1, now.Add(-30*24*time.Hour), nil)

	require.NoError(t, s.RunOnce(context.Background()))

	assert.Equal(t, []int64{1}, remainingIDs(t, db))
}

func TestRunJobTimeoutIsSoft(t *testing.T) {
	s, _, registry := newScheduler(t, Config{})

	err := s.runJob(context.Background(), "slow_job", 1, 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(registry, "quoteflow_scheduler_job_timeouts_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRunJobWrapsFailures(t *testing.T) {
	s, _, _ := newScheduler(t, Config{})
	boom := errors.New("boom")

	err := s.runJob(context.Background(), "broken_job", 1, time.Second, func(context.Context) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "broken_job")
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
