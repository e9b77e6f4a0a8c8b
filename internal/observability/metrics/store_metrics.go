package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	TxReasonDeadlineExceeded     = "deadline_exceeded"
	TxReasonLockTimeout          = "db_lock_timeout"
	TxReasonSerializationFailure = "serialization_failure"
	TxReasonUniqueViolation      = "unique_violation"
	TxReasonRejected             = "rejected"
	TxReasonUnknown              = "unknown"
)

// TxMetrics captures latency and rollback reasons of budget write transactions.
type TxMetrics struct {
	duration  *prometheus.HistogramVec
	rollbacks *prometheus.CounterVec
}

// NewTxMetrics registers transaction collectors on the default registerer.
func NewTxMetrics(cfg Config) *TxMetrics {
	return newTxMetrics(prometheus.DefaultRegisterer, cfg)
}

func newTxMetrics(registerer prometheus.Registerer, cfg Config) *TxMetrics {
	constLabels := constLabelsFor(cfg)
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "quoteflow_budget_tx_duration_seconds",
		Help:        "Budget write transaction latency, lock wait included.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		ConstLabels: constLabels,
	}, []string{"operation"})
	rollbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "quoteflow_budget_tx_rollbacks_total",
		Help:        "Budget write transactions rolled back, by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"operation", "reason"})

	return &TxMetrics{
		duration:  registerCollector(registerer, duration),
		rollbacks: registerCollector(registerer, rollbacks),
	}
}

// ObserveTx records one transaction. A non-nil err counts as a rollback.
func (m *TxMetrics) ObserveTx(operation string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
	if err != nil {
		m.rollbacks.WithLabelValues(operation, ClassifyTxReason(err)).Inc()
	}
}

// ClassifyTxReason maps a transaction error to a low-cardinality reason.
func ClassifyTxReason(err error) string {
	switch {
	case err == nil:
		return TxReasonUnknown
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return TxReasonDeadlineExceeded
	case hasPGCode(err, "55P03"):
		return TxReasonLockTimeout
	case hasPGCode(err, "40001"):
		return TxReasonSerializationFailure
	case errors.Is(err, gorm.ErrDuplicatedKey), hasPGCode(err, "23505"):
		return TxReasonUniqueViolation
	case isDBError(err):
		return TxReasonUnknown
	default:
		return TxReasonRejected
	}
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

func isDBError(err error) bool {
	if errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrInvalidData) ||
		errors.Is(err, gorm.ErrMissingWhereClause) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr)
}
