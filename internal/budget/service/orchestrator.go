package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/quoteflow/internal/audit/domain"
	"github.com/smallbiznis/quoteflow/internal/budget/domain"
	obslogger "github.com/smallbiznis/quoteflow/internal/observability/logger"
	"github.com/smallbiznis/quoteflow/internal/userctx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	opBudgetCreate = "budget.create"
	opBudgetUpdate = "budget.update"
	opBudgetDelete = "budget.delete"
	opItemAdd      = "budget.item.add"
	opItemUpdate   = "budget.item.update"
	opItemDelete   = "budget.item.delete"
)

const (
	outcomeSuccess  = "success"
	outcomeRejected = "rejected"
	outcomeError    = "error"
)

func (s *Service) CreateBudget(ctx context.Context, req domain.CreateBudgetRequest) (*domain.Budget, error) {
	userID, ok := userctx.UserIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidUser
	}
	if len(req.Items) == 0 {
		s.recordOutcome(ctx, opBudgetCreate, domain.ErrEmptyItemList)
		return nil, domain.ErrEmptyItemList
	}

	rules := s.rules.Get()
	now := s.clock.Now()

	budget, err := s.newBudget(userID, req.Budget, now)
	if err != nil {
		s.recordOutcome(ctx, opBudgetCreate, err)
		return nil, err
	}
	items, err := domain.ValidateItems(req.Items, rules.MaxItemsPerBudget)
	if err != nil {
		s.recordOutcome(ctx, opBudgetCreate, err)
		return nil, err
	}
	totals, err := domain.Recalculate(domain.LineTotals(items), budget.DiscountAmount)
	if err != nil {
		s.recordOutcome(ctx, opBudgetCreate, err)
		return nil, err
	}
	budget.Subtotal = totals.Subtotal
	budget.Total = totals.Total

	for i := range items {
		items[i].ID = s.genID.Generate()
		items[i].BudgetID = budget.ID
		items[i].CreatedAt = now
	}

	var created *domain.Budget
	err = s.mutate(ctx, opBudgetCreate, func(tx *gorm.DB) error {
		if err := s.ensureClientOwned(ctx, tx, userID, budget.ClientID); err != nil {
			return err
		}
		if err := s.repo.InsertBudget(ctx, tx, budget); err != nil {
			return err
		}
		if err := s.repo.InsertItems(ctx, tx, items); err != nil {
			return err
		}
		var err error
		created, err = s.loadAggregate(ctx, tx, userID, budget.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, userID, opBudgetCreate, created.ID, map[string]any{
		"client_id": created.ClientID.String(),
		"items":     len(created.Items),
		"total":     created.Total.StringFixed(2),
	})
	return created, nil
}

func (s *Service) newBudget(userID snowflake.ID, in domain.BudgetFields, now time.Time) (*domain.Budget, error) {
	rules := s.rules.Get()

	clientID, err := parseClientID(in.ClientID)
	if err != nil {
		return nil, err
	}
	status := domain.StatusDraft
	if in.Status != "" {
		if status, err = normalizeStatus(in.Status); err != nil {
			return nil, err
		}
	}
	title, err := normalizeTitle(in.Title)
	if err != nil {
		return nil, err
	}
	currency, err := normalizeCurrency(in.Currency, rules)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateDiscount(in.DiscountAmount); err != nil {
		return nil, err
	}

	var validUntil *time.Time
	if in.ValidUntil != nil {
		if validUntil, err = parseValidUntil(*in.ValidUntil); err != nil {
			return nil, err
		}
	}
	if validUntil == nil && rules.DefaultValidDays > 0 {
		d := now.AddDate(0, 0, rules.DefaultValidDays)
		date := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		validUntil = &date
	}

	return &domain.Budget{
		ID:             s.genID.Generate(),
		UserID:         userID,
		ClientID:       clientID,
		PublicID:       uuid.NewString(),
		Status:         status,
		Title:          title,
		Notes:          optionalText(in.Notes),
		ValidUntil:     validUntil,
		Currency:       currency,
		DiscountAmount: in.DiscountAmount,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (s *Service) UpdateBudgetFields(ctx context.Context, budgetID string, req domain.UpdateBudgetRequest) (*domain.Budget, error) {
	userID, ok := userctx.UserIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidUser
	}
	id, err := parseID(budgetID, domain.ErrNotFound)
	if err != nil {
		return nil, err
	}

	fields, newClientID, err := s.budgetPatch(req)
	if err != nil {
		s.recordOutcome(ctx, opBudgetUpdate, err)
		return nil, err
	}

	var updated *domain.Budget
	err = s.mutate(ctx, opBudgetUpdate, func(tx *gorm.DB) error {
		budget, err := s.lockOwnedBudget(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if newClientID != 0 {
			if err := s.ensureClientOwned(ctx, tx, userID, newClientID); err != nil {
				return err
			}
		}
		discount := budget.DiscountAmount
		if req.DiscountAmount != nil {
			discount = *req.DiscountAmount
		}
		if err := s.recompute(ctx, tx, budget, discount, fields); err != nil {
			return err
		}
		updated, err = s.loadAggregate(ctx, tx, userID, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, userID, opBudgetUpdate, id, map[string]any{
		"fields": patchedFields(fields),
		"total":  updated.Total.StringFixed(2),
	})
	return updated, nil
}

// budgetPatch validates every supplied field before the transaction opens.
func (s *Service) budgetPatch(req domain.UpdateBudgetRequest) (map[string]any, snowflake.ID, error) {
	fields := map[string]any{}
	var clientID snowflake.ID

	if req.ClientID != nil {
		id, err := parseClientID(*req.ClientID)
		if err != nil {
			return nil, 0, err
		}
		clientID = id
		fields["client_id"] = id
	}
	if req.Status != nil {
		status, err := normalizeStatus(*req.Status)
		if err != nil {
			return nil, 0, err
		}
		fields["status"] = string(status)
	}
	if req.Title != nil {
		title, err := normalizeTitle(*req.Title)
		if err != nil {
			return nil, 0, err
		}
		fields["title"] = title
	}
	if req.Notes != nil {
		fields["notes"] = nullable(optionalText(req.Notes))
	}
	if req.ValidUntil != nil {
		validUntil, err := parseValidUntil(*req.ValidUntil)
		if err != nil {
			return nil, 0, err
		}
		fields["valid_until"] = nullable(validUntil)
	}
	if req.Currency != nil {
		currency, err := normalizeCurrency(*req.Currency, s.rules.Get())
		if err != nil {
			return nil, 0, err
		}
		fields["currency"] = currency
	}
	if req.DiscountAmount != nil {
		if err := domain.ValidateDiscount(*req.DiscountAmount); err != nil {
			return nil, 0, err
		}
		fields["discount_amount"] = *req.DiscountAmount
	}
	return fields, clientID, nil
}

func (s *Service) DeleteBudget(ctx context.Context, budgetID string) error {
	userID, ok := userctx.UserIDFromContext(ctx)
	if !ok {
		return domain.ErrInvalidUser
	}
	id, err := parseID(budgetID, domain.ErrNotFound)
	if err != nil {
		return err
	}

	var removedItems int64
	err = s.mutate(ctx, opBudgetDelete, func(tx *gorm.DB) error {
		if _, err := s.lockOwnedBudget(ctx, tx, userID, id); err != nil {
			return err
		}
		n, err := s.repo.DeleteItems(ctx, tx, id)
		if err != nil {
			return err
		}
		removedItems = n
		deleted, err := s.repo.DeleteBudget(ctx, tx, id)
		if err != nil {
			return err
		}
		if deleted == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.audit(ctx, userID, opBudgetDelete, id, map[string]any{"items": removedItems})
	return nil
}

func (s *Service) AddItem(ctx context.Context, budgetID string, req domain.ItemInput) (*domain.LineItem, *domain.Budget, error) {
	userID, ok := userctx.UserIDFromContext(ctx)
	if !ok {
		return nil, nil, domain.ErrInvalidUser
	}
	id, err := parseID(budgetID, domain.ErrNotFound)
	if err != nil {
		return nil, nil, err
	}
	item, err := domain.ValidateItem(domain.NoIndex, req)
	if err != nil {
		s.recordOutcome(ctx, opItemAdd, err)
		return nil, nil, err
	}

	var updated *domain.Budget
	err = s.mutate(ctx, opItemAdd, func(tx *gorm.DB) error {
		budget, err := s.lockOwnedBudget(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if limit := s.rules.Get().MaxItemsPerBudget; limit > 0 {
			count, err := s.repo.CountItems(ctx, tx, id)
			if err != nil {
				return err
			}
			if count >= int64(limit) {
				return &domain.InvalidItemError{Index: domain.NoIndex, Field: "items", Reason: domain.ReasonTooMany}
			}
		}

		item.ID = s.genID.Generate()
		item.BudgetID = id
		item.CreatedAt = s.clock.Now()
		if err := s.repo.InsertItems(ctx, tx, []domain.LineItem{item}); err != nil {
			return err
		}
		if err := s.recompute(ctx, tx, budget, budget.DiscountAmount, nil); err != nil {
			return err
		}
		updated, err = s.loadAggregate(ctx, tx, userID, id)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.audit(ctx, userID, opItemAdd, id, map[string]any{
		"item_id": item.ID.String(),
		"total":   updated.Total.StringFixed(2),
	})
	return &item, updated, nil
}

func (s *Service) UpdateItem(ctx context.Context, itemID string, req domain.UpdateItemRequest) (*domain.LineItem, *domain.Budget, error) {
	userID, ok := userctx.UserIDFromContext(ctx)
	if !ok {
		return nil, nil, domain.ErrInvalidUser
	}
	id, err := parseID(itemID, domain.ErrItemNotFound)
	if err != nil {
		return nil, nil, err
	}

	var (
		next    domain.LineItem
		updated *domain.Budget
	)
	err = s.mutate(ctx, opItemUpdate, func(tx *gorm.DB) error {
		current, budget, err := s.lockOwnedItem(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		next, err = domain.ApplyItemPatch(*current, req)
		if err != nil {
			return err
		}
		if err := s.repo.UpdateItem(ctx, tx, id, map[string]any{
			"service_id":  nullable(next.ServiceID),
			"name":        next.Name,
			"description": nullable(next.Description),
			"unit":        string(next.Unit),
			"quantity":    next.Quantity,
			"unit_price":  next.UnitPrice,
			"line_total":  next.LineTotal,
			"sort_order":  next.SortOrder,
		}); err != nil {
			return err
		}
		if err := s.recompute(ctx, tx, budget, budget.DiscountAmount, nil); err != nil {
			return err
		}
		updated, err = s.loadAggregate(ctx, tx, userID, budget.ID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.audit(ctx, userID, opItemUpdate, updated.ID, map[string]any{
		"item_id": id.String(),
		"total":   updated.Total.StringFixed(2),
	})
	return &next, updated, nil
}

func (s *Service) DeleteItem(ctx context.Context, itemID string) (*domain.Budget, error) {
	userID, ok := userctx.UserIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidUser
	}
	id, err := parseID(itemID, domain.ErrItemNotFound)
	if err != nil {
		return nil, err
	}

	var updated *domain.Budget
	err = s.mutate(ctx, opItemDelete, func(tx *gorm.DB) error {
		_, budget, err := s.lockOwnedItem(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		deleted, err := s.repo.DeleteItem(ctx, tx, id)
		if err != nil {
			return err
		}
		if deleted == 0 {
			return domain.ErrItemNotFound
		}
		if err := s.recompute(ctx, tx, budget, budget.DiscountAmount, nil); err != nil {
			return err
		}
		updated, err = s.loadAggregate(ctx, tx, userID, budget.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, userID, opItemDelete, updated.ID, map[string]any{
		"item_id": id.String(),
		"total":   updated.Total.StringFixed(2),
	})
	return updated, nil
}

// recompute re-sums every item of the locked budget and writes the derived
// totals together with extra field changes.
func (s *Service) recompute(ctx context.Context, tx *gorm.DB, budget *domain.Budget, discount decimal.Decimal, extra map[string]any) error {
	subtotal, err := s.repo.SumLineTotals(ctx, tx, budget.ID)
	if err != nil {
		return err
	}
	totals, err := domain.RecalculateFromSubtotal(subtotal, discount)
	if err != nil {
		return err
	}

	fields := make(map[string]any, len(extra)+3)
	for k, v := range extra {
		fields[k] = v
	}
	fields["subtotal"] = totals.Subtotal
	fields["total"] = totals.Total
	fields["updated_at"] = s.clock.Now()
	return s.repo.UpdateBudget(ctx, tx, budget.ID, fields)
}

// mutate runs fn in one transaction and records its latency and outcome.
func (s *Service) mutate(ctx context.Context, operation string, fn func(tx *gorm.DB) error) error {
	start := time.Now()
	err := s.db.WithContext(ctx).Transaction(fn)
	s.txMetrics.ObserveTx(operation, time.Since(start), err)
	s.recordOutcome(ctx, operation, err)

	if err != nil && !isBusinessError(err) {
		obslogger.WithContext(ctx, s.log).Error("budget transaction failed",
			zap.String("operation", operation),
			zap.Error(err),
		)
	}
	return err
}

func (s *Service) recordOutcome(ctx context.Context, operation string, err error) {
	outcome := outcomeSuccess
	switch {
	case err == nil:
	case isBusinessError(err):
		outcome = outcomeRejected
	default:
		outcome = outcomeError
	}
	switch operation {
	case opItemAdd, opItemUpdate, opItemDelete:
		s.metrics.RecordItemMutation(ctx, operation, outcome)
	default:
		s.metrics.RecordBudgetMutation(ctx, operation, outcome)
	}
}

func (s *Service) audit(ctx context.Context, userID snowflake.ID, action string, budgetID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	actorID := userID.String()
	targetID := budgetID.String()
	if err := s.auditSvc.AuditLog(ctx, userID, auditdomain.ActorTypeUser, &actorID, action, "budget", &targetID, metadata); err != nil {
		s.log.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}

func isBusinessError(err error) bool {
	var invalidItem *domain.InvalidItemError
	var unknownField *domain.UnknownFieldError
	if errors.As(err, &invalidItem) || errors.As(err, &unknownField) {
		return true
	}
	for _, target := range []error{
		domain.ErrNotFound,
		domain.ErrItemNotFound,
		domain.ErrEmptyItemList,
		domain.ErrDiscountExceedsSubtotal,
		domain.ErrClientNotOwned,
		domain.ErrInvalidStatus,
		domain.ErrInvalidValidUntil,
		domain.ErrInvalidCurrency,
		domain.ErrInvalidTitle,
		domain.ErrInvalidDiscount,
		domain.ErrInvalidClientID,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func patchedFields(fields map[string]any) []string {
	out := make([]string, 0, len(fields))
	for _, key := range []string{"client_id", "status", "title", "notes", "valid_until", "currency", "discount_amount"} {
		if _, ok := fields[key]; ok {
			out = append(out, key)
		}
	}
	return out
}
