package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/quoteflow/pkg/db/pagination"
)

type ListAuditLogRequest struct {
	pagination.Pagination
	UserID     snowflake.ID
	Action     string
	TargetType string
	TargetID   string
	StartAt    *time.Time
	EndAt      *time.Time
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type Service interface {
	// AuditLog records an entry owned by userID. Metadata values under
	// personal-data keys are masked before they are stored.
	AuditLog(ctx context.Context, userID snowflake.ID, actorType ActorType, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) error
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var (
	ErrInvalidUser      = errors.New("invalid_user")
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
	ErrInvalidAction    = errors.New("invalid_action")
)
