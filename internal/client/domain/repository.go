package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, client *Client) error
	FindByID(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (*Client, error)
	FindByEmail(ctx context.Context, db *gorm.DB, userID snowflake.ID, email string) (*Client, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Client, error)
	Update(ctx context.Context, db *gorm.DB, userID, id snowflake.ID, fields map[string]any) error
	Delete(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (int64, error)
	CountBudgets(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
}
