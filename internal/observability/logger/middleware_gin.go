package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	obscontext "github.com/smallbiznis/quoteflow/internal/observability/context"
	"github.com/smallbiznis/quoteflow/pkg/telemetry/correlation"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-Id"

// MiddlewareConfig controls request logging behavior.
type MiddlewareConfig struct {
	Debug           bool
	ErrorClassifier func(err error) (string, string)
}

// GinMiddleware logs each request with correlation identifiers and safe fields.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := ensureRequestID(c)

		ctx := obscontext.WithRequestID(c.Request.Context(), requestID)
		ctx = obscontext.WithClientMeta(ctx, obscontext.ClientMeta{
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		ctx = correlation.ContextWithCorrelationID(ctx, c.GetHeader(correlation.HeaderName))
		ctx, correlationID := correlation.EnsureCorrelationID(ctx)
		c.Header(correlation.HeaderName, correlationID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.Int64("bytes_in", nonNegative(c.Request.ContentLength)),
			zap.Int64("bytes_out", nonNegative(int64(c.Writer.Size()))),
		}

		if lastErr := c.Errors.Last(); lastErr != nil {
			var errorType, errorCode string
			if cfg.ErrorClassifier != nil {
				errorType, errorCode = cfg.ErrorClassifier(lastErr.Err)
			}
			fields = append(fields,
				zap.String("error_type", errorType),
				zap.String("error_code", errorCode),
			)
			if cfg.Debug && status >= http.StatusInternalServerError {
				fields = append(fields, zap.Error(lastErr.Err))
			}
		}

		logRequest(FromContext(c.Request.Context()), route, status, fields)
	}
}

func ensureRequestID(c *gin.Context) string {
	requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set("request_id", requestID)
	c.Header(requestIDHeader, requestID)
	return requestID
}

func logRequest(log *zap.Logger, route string, status int, fields []zap.Field) {
	if log == nil {
		return
	}
	switch {
	case route == "/metrics" || route == "/health":
		log.Debug("http_request", fields...)
	case status >= http.StatusInternalServerError:
		log.Error("http_request", fields...)
	default:
		log.Info("http_request", fields...)
	}
}

func nonNegative(value int64) int64 {
	if value < 0 {
		return 0
	}
	return value
}
