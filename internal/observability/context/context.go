// Package obscontext carries request-scoped correlation values used by logs and traces.
package obscontext

import (
	"context"
	"strings"
)

type requestIDKey struct{}
type userIDKey struct{}
type clientMetaKey struct{}

// ClientMeta describes the caller of a request.
type ClientMeta struct {
	IPAddress string
	UserAgent string
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey{}).(string)
	return value
}

// WithUserID records the authenticated user for log enrichment.
func WithUserID(ctx context.Context, userID string) context.Context {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ctx
	}
	return context.WithValue(ctx, userIDKey{}, userID)
}

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(userIDKey{}).(string)
	return value
}

func WithClientMeta(ctx context.Context, meta ClientMeta) context.Context {
	return context.WithValue(ctx, clientMetaKey{}, ClientMeta{
		IPAddress: strings.TrimSpace(meta.IPAddress),
		UserAgent: strings.TrimSpace(meta.UserAgent),
	})
}

func ClientMetaFromContext(ctx context.Context) ClientMeta {
	if ctx == nil {
		return ClientMeta{}
	}
	value, _ := ctx.Value(clientMetaKey{}).(ClientMeta)
	return value
}
