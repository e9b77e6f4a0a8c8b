package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/quoteflow/internal/budget/domain"
	"gorm.io/gorm"
)

// GetPublicBudget serves the share link. It is not scoped to a user, so the
// view carries no internal identifiers.
func (s *Service) GetPublicBudget(ctx context.Context, publicID string) (*domain.PublicBudget, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(publicID))
	if err != nil {
		return nil, domain.ErrNotFound
	}

	var (
		budget *domain.Budget
		items  []domain.LineItem
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		budget, err = s.repo.FindBudgetByPublicID(ctx, tx, parsed.String())
		if err != nil {
			return err
		}
		if budget == nil {
			return domain.ErrNotFound
		}
		items, err = s.repo.ListItems(ctx, tx, budget.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	view := &domain.PublicBudget{
		PublicID:       budget.PublicID,
		Status:         budget.Status,
		Title:          budget.Title,
		Notes:          budget.Notes,
		Currency:       budget.Currency,
		Subtotal:       budget.Subtotal,
		DiscountAmount: budget.DiscountAmount,
		Total:          budget.Total,
		Items:          make([]domain.PublicLineItem, 0, len(items)),
	}
	if budget.ValidUntil != nil {
		date := budget.ValidUntil.Format(time.DateOnly)
		view.ValidUntil = &date
	}
	for _, item := range items {
		view.Items = append(view.Items, domain.PublicLineItem{
			Name:        item.Name,
			Description: item.Description,
			Unit:        item.Unit,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
		})
	}
	return view, nil
}
