package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/quoteflow/internal/budget/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// LockBudget takes a row lock on the budget so item mutations on the same
// budget serialize. Dialects without row locks ignore the clause.
func (r *repo) LockBudget(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (*domain.Budget, error) {
	var budget domain.Budget
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ?", id, userID).
		Take(&budget).Error
	return found(&budget, err)
}

func (r *repo) FindBudget(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (*domain.Budget, error) {
	var budget domain.Budget
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Take(&budget).Error
	return found(&budget, err)
}

func (r *repo) FindBudgetByPublicID(ctx context.Context, db *gorm.DB, publicID string) (*domain.Budget, error) {
	var budget domain.Budget
	err := db.WithContext(ctx).
		Where("public_id = ?", publicID).
		Take(&budget).Error
	return found(&budget, err)
}

func (r *repo) ListBudgets(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Budget, error) {
	var budgets []*domain.Budget
	stmt := db.WithContext(ctx).
		Model(&domain.Budget{}).
		Where("user_id = ?", filter.UserID)
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.ClientID != 0 {
		stmt = stmt.Where("client_id = ?", filter.ClientID)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("((created_at < ?) OR (created_at = ? AND id < ?))",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}
	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}
	if err := stmt.Find(&budgets).Error; err != nil {
		return nil, err
	}
	return budgets, nil
}

func (r *repo) InsertBudget(ctx context.Context, db *gorm.DB, budget *domain.Budget) error {
	return db.WithContext(ctx).Omit(clause.Associations).Create(budget).Error
}

func (r *repo) UpdateBudget(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	return db.WithContext(ctx).
		Model(&domain.Budget{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repo) DeleteBudget(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Budget{})
	return res.RowsAffected, res.Error
}

func (r *repo) ClientOwnedBy(ctx context.Context, db *gorm.DB, userID, clientID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Table("clients").
		Where("id = ? AND user_id = ?", clientID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *repo) InsertItems(ctx context.Context, db *gorm.DB, items []domain.LineItem) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(items, 100).Error
}

// FindItem resolves an item through its parent budget's owner.
func (r *repo) FindItem(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (*domain.LineItem, error) {
	var item domain.LineItem
	err := db.WithContext(ctx).
		Table("budget_items").
		Select("budget_items.*").
		Joins("JOIN budgets ON budgets.id = budget_items.budget_id").
		Where("budget_items.id = ? AND budgets.user_id = ?", id, userID).
		Take(&item).Error
	return found(&item, err)
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, budgetID snowflake.ID) ([]domain.LineItem, error) {
	var items []domain.LineItem
	err := db.WithContext(ctx).
		Where("budget_id = ?", budgetID).
		Order("sort_order asc, created_at asc, id asc").
		Find(&items).Error
	return items, err
}

func (r *repo) CountItems(ctx context.Context, db *gorm.DB, budgetID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.LineItem{}).
		Where("budget_id = ?", budgetID).
		Count(&count).Error
	return count, err
}

func (r *repo) UpdateItem(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	return db.WithContext(ctx).
		Model(&domain.LineItem{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repo) DeleteItem(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.LineItem{})
	return res.RowsAffected, res.Error
}

func (r *repo) DeleteItems(ctx context.Context, db *gorm.DB, budgetID snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Where("budget_id = ?", budgetID).Delete(&domain.LineItem{})
	return res.RowsAffected, res.Error
}

// SumLineTotals is the authoritative subtotal source. It must run on the same
// transaction that holds the budget lock.
func (r *repo) SumLineTotals(ctx context.Context, db *gorm.DB, budgetID snowflake.ID) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := db.WithContext(ctx).
		Model(&domain.LineItem{}).
		Select("COALESCE(SUM(line_total), 0)").
		Where("budget_id = ?", budgetID).
		Row().
		Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

func found[T any](v *T, err error) (*T, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}
