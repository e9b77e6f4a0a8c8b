package userctx

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// UserContextKey is the request context key for the authenticated user ID.
type UserContextKey struct{}

// WithUserID stores the user ID in the context.
func WithUserID(ctx context.Context, userID snowflake.ID) context.Context {
	return context.WithValue(ctx, UserContextKey{}, userID)
}

// UserIDFromContext returns the user ID from context, if set.
func UserIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}

	switch typed := ctx.Value(UserContextKey{}).(type) {
	case snowflake.ID:
		return typed, typed != 0
	case int64:
		return snowflake.ID(typed), typed != 0
	case string:
		parsed, err := snowflake.ParseString(strings.TrimSpace(typed))
		if err == nil && parsed != 0 {
			return parsed, true
		}
	}
	return 0, false
}
