package correlation

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"
)

// HeaderName is the HTTP header used to propagate correlation IDs.
const HeaderName = "X-Correlation-Id"

// correlationKey is an unexported type for context keys within this package.
type correlationKey struct{}

// ExtractCorrelationID fetches a correlation ID from the context if present.
func ExtractCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if val, ok := ctx.Value(correlationKey{}).(string); ok {
		return val
	}
	return ""
}

// ContextWithCorrelationID sets the correlation ID onto the context.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	id = strings.TrimSpace(id)
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

// EnsureCorrelationID guarantees a correlation ID on the context, generating a ULID when missing.
func EnsureCorrelationID(ctx context.Context) (context.Context, string) {
	cid := ExtractCorrelationID(ctx)
	if cid == "" {
		cid = ulid.Make().String()
	}
	return ContextWithCorrelationID(ctx, cid), cid
}
