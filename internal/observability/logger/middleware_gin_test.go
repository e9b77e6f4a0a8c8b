package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/quoteflow/internal/observability/context"
	"github.com/smallbiznis/quoteflow/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestGinMiddlewarePropagatesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	var seenRequestID, seenCorrelation string
	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{}))
	r.GET("/api/budgets", func(c *gin.Context) {
		seenRequestID = obscontext.RequestIDFromContext(c.Request.Context())
		seenCorrelation = correlation.ExtractCorrelationID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/budgets", nil)
	req.Header.Set("X-Request-Id", "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-123", seenRequestID)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-Id"))
	assert.NotEmpty(t, seenCorrelation)
	assert.Equal(t, seenCorrelation, w.Header().Get(correlation.HeaderName))

	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/api/budgets", fields["route"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
	assert.Equal(t, "req-123", fields["request_id"])
}

func TestGinMiddlewareGeneratesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{}))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestOperationFromSQL(t *testing.T) {
	assert.Equal(t, "SELECT", operationFromSQL("select * from budgets"))
	assert.Equal(t, "UPDATE", operationFromSQL("  UPDATE budgets SET subtotal = ?"))
	assert.Equal(t, "SELECT", operationFromSQL("WITH x AS (SELECT 1) SELECT * FROM x"))
	assert.Equal(t, "UNKNOWN", operationFromSQL(""))
}

func TestGinMiddlewareKeepsInboundCorrelationID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var seen string
	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{}))
	r.GET("/api/items/1", func(c *gin.Context) {
		seen = correlation.ExtractCorrelationID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/items/1", nil)
	req.Header.Set(correlation.HeaderName, "corr-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "corr-42", seen)
	assert.Equal(t, "corr-42", w.Header().Get(correlation.HeaderName))
}
