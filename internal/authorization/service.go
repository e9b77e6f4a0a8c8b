package authorization

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Service decides whether a user may perform action on an object type.
// Row ownership is checked by each domain service, not here.
type Service interface {
	Authorize(ctx context.Context, userID snowflake.ID, object string, action string) error
}
