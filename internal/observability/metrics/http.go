package metrics

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics tracks request counts and latency per route.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTPMetrics registers HTTP collectors on the default registerer.
func NewHTTPMetrics(cfg Config) *HTTPMetrics {
	return newHTTPMetrics(prometheus.DefaultRegisterer, cfg)
}

func newHTTPMetrics(registerer prometheus.Registerer, cfg Config) *HTTPMetrics {
	constLabels := constLabelsFor(cfg)
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "quoteflow_http_requests_total",
		Help:        "HTTP requests by route, method and status.",
		ConstLabels: constLabels,
	}, []string{"method", "route", "status_code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "quoteflow_http_request_duration_seconds",
		Help:        "HTTP request latency by route.",
		Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		ConstLabels: constLabels,
	}, []string{"method", "route"})

	return &HTTPMetrics{
		requests: registerCollector(registerer, requests),
		duration: registerCollector(registerer, duration),
	}
}

// GinMiddleware observes every request after the handler chain completes.
func (m *HTTPMetrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		method := c.Request.Method
		m.requests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

func constLabelsFor(cfg Config) prometheus.Labels {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "quoteflow"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	return prometheus.Labels{"service": serviceName, "env": environment}
}

// registerCollector returns the already registered collector when one exists,
// so repeated construction in tests does not panic.
func registerCollector[T prometheus.Collector](registerer prometheus.Registerer, c T) T {
	if registerer == nil {
		return c
	}
	if err := registerer.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}
