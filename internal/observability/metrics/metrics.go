package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	budgetMutations metric.Int64Counter
	itemMutations   metric.Int64Counter
	loginAttempts   metric.Int64Counter
	rateLimitDenied metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "quoteflow"
	}
	meter := provider.Meter(name)

	budgetMutations, err := meter.Int64Counter("quoteflow_budget_mutations_total")
	if err != nil {
		return nil, err
	}
	itemMutations, err := meter.Int64Counter("quoteflow_item_mutations_total")
	if err != nil {
		return nil, err
	}
	loginAttempts, err := meter.Int64Counter("quoteflow_login_attempts_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("quoteflow_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		budgetMutations: budgetMutations,
		itemMutations:   itemMutations,
		loginAttempts:   loginAttempts,
		rateLimitDenied: rateLimitDenied,
	}, nil
}

// RecordBudgetMutation counts a committed or rejected budget-level operation.
func (m *Metrics) RecordBudgetMutation(ctx context.Context, operation, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("operation", strings.TrimSpace(operation)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.budgetMutations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordItemMutation counts a line item operation.
func (m *Metrics) RecordItemMutation(ctx context.Context, operation, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("operation", strings.TrimSpace(operation)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.itemMutations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordLoginAttempt counts logins by outcome.
func (m *Metrics) RecordLoginAttempt(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.loginAttempts.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitDenied increments rate limit deny counts.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"operation":   {},
	"outcome":     {},
	"endpoint":    {},
	"status_code": {},
	"reason":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
