package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SchedulerMetrics captures maintenance job health.
type SchedulerMetrics struct {
	jobRuns    *prometheus.CounterVec
	jobTimeout *prometheus.CounterVec
	jobErrors  *prometheus.CounterVec
	jobLatency *prometheus.HistogramVec
	processed  *prometheus.CounterVec
	runLoopLag prometheus.Observer
}

var (
	schedulerMetricsOnce sync.Once
	schedulerMetrics     *SchedulerMetrics
)

// Scheduler returns the singleton scheduler metrics registry.
func Scheduler() *SchedulerMetrics {
	return SchedulerWithConfig(Config{})
}

// SchedulerWithConfig returns the singleton scheduler metrics registry using config labels.
func SchedulerWithConfig(cfg Config) *SchedulerMetrics {
	schedulerMetricsOnce.Do(func() {
		schedulerMetrics = newSchedulerMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return schedulerMetrics
}

// ResetSchedulerMetricsForTest resets the scheduler metrics singleton for tests.
func ResetSchedulerMetricsForTest() {
	schedulerMetricsOnce = sync.Once{}
	schedulerMetrics = nil
}

func newSchedulerMetrics(registerer prometheus.Registerer, cfg Config) *SchedulerMetrics {
	constLabels := constLabelsFor(cfg)

	jobRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "quoteflow_scheduler_job_runs_total",
		Help:        "Scheduler job runs by name.",
		ConstLabels: constLabels,
	}, []string{"job"})
	jobTimeout := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "quoteflow_scheduler_job_timeouts_total",
		Help:        "Scheduler jobs cut short by their deadline.",
		ConstLabels: constLabels,
	}, []string{"job"})
	jobErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "quoteflow_scheduler_job_errors_total",
		Help:        "Scheduler job failures by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"job", "reason"})
	jobLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "quoteflow_scheduler_job_duration_seconds",
		Help:        "Scheduler job latency.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		ConstLabels: constLabels,
	}, []string{"job"})
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "quoteflow_scheduler_rows_processed_total",
		Help:        "Rows handled by scheduler jobs.",
		ConstLabels: constLabels,
	}, []string{"job"})
	runLoopLag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "quoteflow_scheduler_run_loop_lag_seconds",
		Help:        "Delay between the planned tick and the actual run.",
		Buckets:     []float64{0.001, 0.01, 0.1, 1, 5, 30, 60},
		ConstLabels: constLabels,
	})

	return &SchedulerMetrics{
		jobRuns:    registerCollector(registerer, jobRuns),
		jobTimeout: registerCollector(registerer, jobTimeout),
		jobErrors:  registerCollector(registerer, jobErrors),
		jobLatency: registerCollector(registerer, jobLatency),
		processed:  registerCollector(registerer, processed),
		runLoopLag: registerCollector(registerer, runLoopLag),
	}
}

func (m *SchedulerMetrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
}

func (m *SchedulerMetrics) ObserveJobDuration(job string, duration time.Duration) {
	if m == nil {
		return
	}
	m.jobLatency.WithLabelValues(job).Observe(duration.Seconds())
}

func (m *SchedulerMetrics) IncJobTimeout(job string) {
	if m == nil {
		return
	}
	m.jobTimeout.WithLabelValues(job).Inc()
}

// IncJobError reuses the transaction reason classifier.
func (m *SchedulerMetrics) IncJobError(job string, err error) {
	if m == nil || err == nil {
		return
	}
	m.jobErrors.WithLabelValues(job, ClassifyTxReason(err)).Inc()
}

func (m *SchedulerMetrics) AddProcessed(job string, count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.processed.WithLabelValues(job).Add(float64(count))
}

func (m *SchedulerMetrics) ObserveRunLoopLag(duration time.Duration) {
	if m == nil {
		return
	}
	if duration < 0 {
		duration = 0
	}
	m.runLoopLag.Observe(duration.Seconds())
}
