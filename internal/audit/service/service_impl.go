package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/quoteflow/internal/audit/domain"
	"github.com/smallbiznis/quoteflow/internal/audit/masking"
	"github.com/smallbiznis/quoteflow/internal/clock"
	obscontext "github.com/smallbiznis/quoteflow/internal/observability/context"
	"github.com/smallbiznis/quoteflow/pkg/db/pagination"
	"github.com/smallbiznis/quoteflow/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 50
	maxPageSize     = 250
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock `optional:"true"`
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: clk,
		repo:  p.Repo,
	}
}

func (s *Service) AuditLog(ctx context.Context, userID snowflake.ID, actorType auditdomain.ActorType, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) error {
	if userID == 0 {
		return auditdomain.ErrInvalidUser
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}
	targetType = strings.TrimSpace(targetType)
	if targetType == "" {
		targetType = "unknown"
	}
	if actorType == "" {
		actorType = auditdomain.ActorTypeUser
	}

	payload := masking.MaskPII(metadata)
	if payload == nil {
		payload = map[string]any{}
	}
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		payload["request_id"] = requestID
	}
	if cid := correlation.ExtractCorrelationID(ctx); cid != "" {
		payload["correlation_id"] = cid
	}

	entry := auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		UserID:     userID,
		ActorType:  string(actorType),
		ActorID:    normalizePointer(actorID),
		Action:     action,
		TargetType: targetType,
		TargetID:   normalizePointer(targetID),
		Metadata:   datatypes.JSONMap(payload),
		CreatedAt:  s.clock.Now(),
	}
	meta := obscontext.ClientMetaFromContext(ctx)
	entry.IPAddress = normalizePointer(&meta.IPAddress)
	entry.UserAgent = normalizePointer(&meta.UserAgent)

	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	if req.UserID == 0 {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidUser
	}
	if req.StartAt != nil && req.EndAt != nil && req.StartAt.After(*req.EndAt) {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidTimeRange
	}

	var cursor *auditdomain.AuditCursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
		if err != nil {
			return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidPageToken
		}
		cursor = &auditdomain.AuditCursor{ID: id, CreatedAt: createdAt}
	}

	pageSize := pagination.Limit(req.PageSize, defaultPageSize, maxPageSize)

	items, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		UserID:     req.UserID,
		Action:     req.Action,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
		Cursor:     cursor,
		Limit:      pageSize,
	})
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(item *auditdomain.AuditLog) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})

	logs := make([]auditdomain.AuditLog, 0, len(items))
	for _, item := range items {
		if item != nil {
			logs = append(logs, *item)
		}
	}
	return auditdomain.ListAuditLogResponse{PageInfo: *pageInfo, AuditLogs: logs}, nil
}

func normalizePointer(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
