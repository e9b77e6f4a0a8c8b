package service

import (
	"context"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/quoteflow/internal/audit/domain"
	"github.com/smallbiznis/quoteflow/internal/client/domain"
	"github.com/smallbiznis/quoteflow/internal/clock"
	"github.com/smallbiznis/quoteflow/internal/userctx"
	"github.com/smallbiznis/quoteflow/pkg/db"
	"github.com/smallbiznis/quoteflow/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 50
	maxPageSize     = 250
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("client.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateClientRequest) (domain.Client, error) {
	userID, ok := userctx.UserIDFromContext(ctx)
	if !ok {
		return domain.Client{}, domain.ErrInvalidUser
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Client{}, domain.ErrInvalidName
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return domain.Client{}, err
	}
	whatsapp, err := normalizeOptionalWhatsapp(req.Whatsapp)
	if err != nil {
		return domain.Client{}, err
	}

	now := s.clock.Now()
	client := domain.Client{
		ID:        s.genID.Generate(),
		UserID:    userID,
		Name:      name,
		Email:     email,
		Whatsapp:  whatsapp,
		Notes:     optionalText(req.Notes),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByEmail(ctx, tx, userID, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrEmailTaken
		}
		return s.repo.Insert(ctx, tx, &client)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Client{}, domain.ErrEmailTaken
		}
		return domain.Client{}, err
	}

	s.audit(ctx, userID, "client.create", client.ID, map[string]any{"email": client.Email})
	return client, nil
}

func (s *Service) List(ctx context.Context, req domain.ListClientRequest) (domain.ListClientResponse, error) {
	userID, ok := userctx.UserIDFromContext(ctx)
	if !ok {
		return domain.ListClientResponse{}, domain.ErrInvalidUser
	}

	var cursor *domain.Cursor
	if token := strings.TrimSpace(req.PageToken); token != "" {
		decoded, err := pagination.DecodeCursor(token)
		if err != nil {
			return domain.ListClientResponse{}, domain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
		if err != nil {
			return domain.ListClientResponse{}, domain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(decoded.ID)
		if err != nil || id == 0 {
			return domain.ListClientResponse{}, domain.ErrInvalidPageToken
		}
		cursor = &domain.Cursor{ID: id, CreatedAt: createdAt}
	}

	pageSize := pagination.Limit(req.PageSize, defaultPageSize, maxPageSize)
	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		UserID: userID,
		Name:   req.Name,
		Email:  req.Email,
		Cursor: cursor,
		Limit:  pageSize,
	})
	if err != nil {
		return domain.ListClientResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(c *domain.Client) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        c.ID.String(),
			CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})

	clients := make([]domain.Client, 0, len(items))
	for _, item := range items {
		if item != nil {
			clients = append(clients, *item)
		}
	}
	return domain.ListClientResponse{PageInfo: *pageInfo, Clients: clients}, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Client, error) {
	userID, ok := userctx.UserIDFromContext(ctx)
	if !ok {
		return domain.Client{}, domain.ErrInvalidUser
	}
	clientID, err := parseID(id)
	if err != nil {
		return domain.Client{}, err
	}

	client, err := s.repo.FindByID(ctx, s.db, userID, clientID)
	if err != nil {
		return domain.Client{}, err
	}
	if client == nil {
		return domain.Client{}, domain.ErrNotFound
	}
	return *client, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateClientRequest) (domain.Client, error) {
	userID, ok := userctx.UserIDFromContext(ctx)
	if !ok {
		return domain.Client{}, domain.ErrInvalidUser
	}
	clientID, err := parseID(id)
	if err != nil {
		return domain.Client{}, err
	}

	fields := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Client{}, domain.ErrInvalidName
		}
		fields["name"] = name
	}
	var email string
	if req.Email != nil {
		email, err = normalizeEmail(*req.Email)
		if err != nil {
			return domain.Client{}, err
		}
		fields["email"] = email
	}
	if req.Whatsapp != nil {
		whatsapp, err := normalizeOptionalWhatsapp(req.Whatsapp)
		if err != nil {
			return domain.Client{}, err
		}
		fields["whatsapp"] = nullable(whatsapp)
	}
	if req.Notes != nil {
		fields["notes"] = nullable(optionalText(req.Notes))
	}

	var updated *domain.Client
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindByID(ctx, tx, userID, clientID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}
		if email != "" && email != current.Email {
			other, err := s.repo.FindByEmail(ctx, tx, userID, email)
			if err != nil {
				return err
			}
			if other != nil {
				return domain.ErrEmailTaken
			}
		}
		if len(fields) > 0 {
			fields["updated_at"] = s.clock.Now()
			if err := s.repo.Update(ctx, tx, userID, clientID, fields); err != nil {
				return err
			}
		}
		updated, err = s.repo.FindByID(ctx, tx, userID, clientID)
		return err
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Client{}, domain.ErrEmailTaken
		}
		return domain.Client{}, err
	}
	if updated == nil {
		return domain.Client{}, domain.ErrNotFound
	}

	s.audit(ctx, userID, "client.update", clientID, map[string]any{"fields": changedFields(fields)})
	return *updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	userID, ok := userctx.UserIDFromContext(ctx)
	if !ok {
		return domain.ErrInvalidUser
	}
	clientID, err := parseID(id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindByID(ctx, tx, userID, clientID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}
		inUse, err := s.repo.CountBudgets(ctx, tx, clientID)
		if err != nil {
			return err
		}
		if inUse > 0 {
			return domain.ErrClientInUse
		}
		_, err = s.repo.Delete(ctx, tx, userID, clientID)
		return err
	})
	if err != nil {
		if db.IsForeignKeyErr(err) {
			return domain.ErrClientInUse
		}
		return err
	}

	s.audit(ctx, userID, "client.delete", clientID, nil)
	return nil
}

func (s *Service) audit(ctx context.Context, userID snowflake.ID, action string, clientID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	actorID := userID.String()
	targetID := clientID.String()
	if err := s.auditSvc.AuditLog(ctx, userID, auditdomain.ActorTypeUser, &actorID, action, "client", &targetID, metadata); err != nil {
		s.log.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", domain.ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}

func normalizeOptionalWhatsapp(raw *string) (*string, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	digits, err := domain.NormalizeWhatsapp(*raw)
	if err != nil {
		return nil, err
	}
	return &digits, nil
}

func optionalText(raw *string) *string {
	if raw == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// nullable unwraps v so map updates write either the value or SQL NULL.
func nullable(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func changedFields(fields map[string]any) []string {
	out := make([]string, 0, len(fields))
	for key := range fields {
		if key != "updated_at" {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}
