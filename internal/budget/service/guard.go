package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/quoteflow/internal/budget/domain"
	"gorm.io/gorm"
)

// Ownership checks. A row owned by someone else is reported exactly like a
// missing row.

func (s *Service) lockOwnedBudget(ctx context.Context, tx *gorm.DB, userID, budgetID snowflake.ID) (*domain.Budget, error) {
	budget, err := s.repo.LockBudget(ctx, tx, userID, budgetID)
	if err != nil {
		return nil, err
	}
	if budget == nil {
		return nil, domain.ErrNotFound
	}
	return budget, nil
}

// lockOwnedItem resolves the item through its budget, locks the budget, then
// re-reads the item under the lock.
func (s *Service) lockOwnedItem(ctx context.Context, tx *gorm.DB, userID, itemID snowflake.ID) (*domain.LineItem, *domain.Budget, error) {
	item, err := s.repo.FindItem(ctx, tx, userID, itemID)
	if err != nil {
		return nil, nil, err
	}
	if item == nil {
		return nil, nil, domain.ErrItemNotFound
	}

	budget, err := s.repo.LockBudget(ctx, tx, userID, item.BudgetID)
	if err != nil {
		return nil, nil, err
	}
	if budget == nil {
		return nil, nil, domain.ErrItemNotFound
	}

	item, err = s.repo.FindItem(ctx, tx, userID, itemID)
	if err != nil {
		return nil, nil, err
	}
	if item == nil {
		return nil, nil, domain.ErrItemNotFound
	}
	return item, budget, nil
}

func (s *Service) ensureClientOwned(ctx context.Context, tx *gorm.DB, userID, clientID snowflake.ID) error {
	owned, err := s.repo.ClientOwnedBy(ctx, tx, userID, clientID)
	if err != nil {
		return err
	}
	if !owned {
		return domain.ErrClientNotOwned
	}
	return nil
}
