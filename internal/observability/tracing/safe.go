package tracing

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

var allowedSpanKeys = map[attribute.Key]struct{}{
	"http.method":             {},
	"http.route":              {},
	"http.status_code":        {},
	"http.server_duration_ms": {},
	"request_id":              {},
	"user_id":                 {},
	"budget_id":               {},
}

// ExtractContext reads propagated trace headers into ctx.
func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

// SafeAttributes drops span attributes outside the allow-list so payload data never reaches traces.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedSpanKeys[attr.Key]; ok {
			out = append(out, attr)
		}
	}
	return out
}

// SafeError strips the message of err, keeping only its presence.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	return errors.New("request failed")
}
