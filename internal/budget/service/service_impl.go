package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/quoteflow/internal/audit/domain"
	"github.com/smallbiznis/quoteflow/internal/budget/domain"
	"github.com/smallbiznis/quoteflow/internal/clock"
	"github.com/smallbiznis/quoteflow/internal/config"
	"github.com/smallbiznis/quoteflow/internal/observability/metrics"
	"github.com/smallbiznis/quoteflow/internal/userctx"
	"github.com/smallbiznis/quoteflow/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxPageSize = 250

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Rules     *config.BudgetRulesHolder
	Metrics   *metrics.Metrics    `optional:"true"`
	TxMetrics *metrics.TxMetrics  `optional:"true"`
	AuditSvc  auditdomain.Service `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	rules     *config.BudgetRulesHolder
	metrics   *metrics.Metrics
	txMetrics *metrics.TxMetrics
	auditSvc  auditdomain.Service
}

func New(p Params) domain.Service {
	rules := p.Rules
	if rules == nil {
		rules = config.NewStaticBudgetRules(config.DefaultBudgetRules())
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("budget.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		rules:     rules,
		metrics:   p.Metrics,
		txMetrics: p.TxMetrics,
		auditSvc:  p.AuditSvc,
	}
}

func (s *Service) GetBudget(ctx context.Context, budgetID string) (*domain.Budget, error) {
	userID, ok := userctx.UserIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidUser
	}
	id, err := parseID(budgetID, domain.ErrNotFound)
	if err != nil {
		return nil, err
	}

	var budget *domain.Budget
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		budget, err = s.loadAggregate(ctx, tx, userID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return budget, nil
}

func (s *Service) ListBudgets(ctx context.Context, req domain.ListBudgetRequest) (domain.ListBudgetResponse, error) {
	userID, ok := userctx.UserIDFromContext(ctx)
	if !ok {
		return domain.ListBudgetResponse{}, domain.ErrInvalidUser
	}

	filter := domain.ListFilter{UserID: userID}
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status, ok := domain.ParseStatus(strings.ToLower(raw))
		if !ok {
			return domain.ListBudgetResponse{}, domain.ErrInvalidStatus
		}
		filter.Status = status
	}
	if raw := strings.TrimSpace(req.ClientID); raw != "" {
		clientID, err := parseID(raw, domain.ErrInvalidClientID)
		if err != nil {
			return domain.ListBudgetResponse{}, err
		}
		filter.ClientID = clientID
	}
	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := decodeCursor(token)
		if err != nil {
			return domain.ListBudgetResponse{}, err
		}
		filter.Cursor = cursor
	}
	filter.Limit = pagination.Limit(req.PageSize, s.rules.Get().ListPageSize, maxPageSize)

	items, err := s.repo.ListBudgets(ctx, s.db, filter)
	if err != nil {
		return domain.ListBudgetResponse{}, err
	}
	items, pageInfo := pagination.BuildCursorPageInfo(items, filter.Limit, func(b *domain.Budget) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        b.ID.String(),
			CreatedAt: b.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})

	budgets := make([]domain.Budget, 0, len(items))
	for _, item := range items {
		if item != nil {
			budgets = append(budgets, *item)
		}
	}
	return domain.ListBudgetResponse{PageInfo: *pageInfo, Budgets: budgets}, nil
}

func (s *Service) GetItem(ctx context.Context, itemID string) (*domain.LineItem, error) {
	userID, ok := userctx.UserIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidUser
	}
	id, err := parseID(itemID, domain.ErrItemNotFound)
	if err != nil {
		return nil, err
	}
	item, err := s.repo.FindItem(ctx, s.db, userID, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrItemNotFound
	}
	return item, nil
}

func (s *Service) ListItems(ctx context.Context, budgetID string) ([]domain.LineItem, error) {
	userID, ok := userctx.UserIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidUser
	}
	id, err := parseID(budgetID, domain.ErrNotFound)
	if err != nil {
		return nil, err
	}

	var items []domain.LineItem
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		budget, err := s.repo.FindBudget(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if budget == nil {
			return domain.ErrNotFound
		}
		items, err = s.repo.ListItems(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.LineItem{}
	}
	return items, nil
}

// loadAggregate reads the budget with its items on the given handle.
func (s *Service) loadAggregate(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (*domain.Budget, error) {
	budget, err := s.repo.FindBudget(ctx, db, userID, id)
	if err != nil {
		return nil, err
	}
	if budget == nil {
		return nil, domain.ErrNotFound
	}
	items, err := s.repo.ListItems(ctx, db, id)
	if err != nil {
		return nil, err
	}
	budget.Items = items
	return budget, nil
}

// parseID treats malformed ids like missing rows so callers cannot probe.
func parseID(value string, notFound error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, notFound
	}
	return id, nil
}

func decodeCursor(token string) (*domain.Cursor, error) {
	decoded, err := pagination.DecodeCursor(token)
	if err != nil {
		return nil, domain.ErrInvalidPageToken
	}
	createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
	if err != nil {
		return nil, domain.ErrInvalidPageToken
	}
	id, err := snowflake.ParseString(decoded.ID)
	if err != nil || id == 0 {
		return nil, domain.ErrInvalidPageToken
	}
	return &domain.Cursor{ID: id, CreatedAt: createdAt}, nil
}
