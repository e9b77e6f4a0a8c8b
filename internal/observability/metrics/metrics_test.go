package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	"gorm.io/gorm"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("operation", "add_item"),
		attribute.String("user_id", "456"),
		attribute.String("outcome", "ok"),
	)
	require.Len(t, attrs, 2)
	keys := []attribute.Key{attrs[0].Key, attrs[1].Key}
	assert.Contains(t, keys, attribute.Key("operation"))
	assert.Contains(t, keys, attribute.Key("outcome"))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordBudgetMutation(context.Background(), "create_budget", "ok")
	m.RecordLoginAttempt(context.Background(), "ok")

	var tx *TxMetrics
	tx.ObserveTx("add_item", time.Millisecond, errors.New("boom"))
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "quoteflow"}, noop.NewMeterProvider())
	require.NoError(t, err)
	m.RecordItemMutation(context.Background(), "update_item", "ok")
	m.RecordRateLimitDenied(context.Background(), "/auth/login", "token_bucket")
}

func TestHTTPMetricsGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := newHTTPMetrics(reg, Config{ServiceName: "quoteflow", Environment: "test"})

	r := gin.New()
	r.Use(m.GinMiddleware())
	r.GET("/api/budgets/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	for i := 0; i < 2; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/budgets/%d", i), nil))
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/api/budgets/:id", "404")))
}

func TestRegisterCollectorReusesExisting(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := newTxMetrics(reg, Config{})
	second := newTxMetrics(reg, Config{})
	assert.Same(t, first.duration, second.duration)
}

func TestTxMetricsCountsRollbacks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newTxMetrics(reg, Config{})

	m.ObserveTx("add_item", 5*time.Millisecond, nil)
	m.ObserveTx("add_item", 5*time.Millisecond, errors.New("discount exceeds subtotal"))
	m.ObserveTx("add_item", 5*time.Millisecond, &pgconn.PgError{Code: "55P03"})

	assert.Equal(t, float64(1), testutil.ToFloat64(m.rollbacks.WithLabelValues("add_item", TxReasonRejected)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.rollbacks.WithLabelValues("add_item", TxReasonLockTimeout)))
}

func TestClassifyTxReason(t *testing.T) {
	assert.Equal(t, TxReasonDeadlineExceeded, ClassifyTxReason(fmt.Errorf("wrap: %w", context.DeadlineExceeded)))
	assert.Equal(t, TxReasonSerializationFailure, ClassifyTxReason(&pgconn.PgError{Code: "40001"}))
	assert.Equal(t, TxReasonUniqueViolation, ClassifyTxReason(gorm.ErrDuplicatedKey))
	assert.Equal(t, TxReasonUnknown, ClassifyTxReason(&pgconn.PgError{Code: "XX000"}))
}
