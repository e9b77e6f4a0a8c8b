package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository methods take the handle to run on so the service can pass a transaction.
// Lookups return nil, nil when nothing matches the owner scope.
type Repository interface {
	LockBudget(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (*Budget, error)
	FindBudget(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (*Budget, error)
	FindBudgetByPublicID(ctx context.Context, db *gorm.DB, publicID string) (*Budget, error)
	ListBudgets(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Budget, error)
	InsertBudget(ctx context.Context, db *gorm.DB, budget *Budget) error
	UpdateBudget(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	DeleteBudget(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)

	ClientOwnedBy(ctx context.Context, db *gorm.DB, userID, clientID snowflake.ID) (bool, error)

	InsertItems(ctx context.Context, db *gorm.DB, items []LineItem) error
	FindItem(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (*LineItem, error)
	ListItems(ctx context.Context, db *gorm.DB, budgetID snowflake.ID) ([]LineItem, error)
	CountItems(ctx context.Context, db *gorm.DB, budgetID snowflake.ID) (int64, error)
	UpdateItem(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	DeleteItem(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
	DeleteItems(ctx context.Context, db *gorm.DB, budgetID snowflake.ID) (int64, error)
	SumLineTotals(ctx context.Context, db *gorm.DB, budgetID snowflake.ID) (decimal.Decimal, error)
}
