package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/quoteflow/internal/client/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, client *domain.Client) error {
	return db.WithContext(ctx).Create(client).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (*domain.Client, error) {
	var client domain.Client
	err := db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, id).
		Take(&client).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, userID snowflake.ID, email string) (*domain.Client, error) {
	var client domain.Client
	err := db.WithContext(ctx).
		Where("user_id = ? AND email = ?", userID, email).
		Take(&client).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Client, error) {
	var clients []*domain.Client
	stmt := db.WithContext(ctx).
		Model(&domain.Client{}).
		Where("user_id = ?", filter.UserID)
	if name := strings.TrimSpace(filter.Name); name != "" {
		stmt = stmt.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}
	if email := strings.TrimSpace(filter.Email); email != "" {
		stmt = stmt.Where("email = ?", strings.ToLower(email))
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
	if err := stmt.Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, userID, id snowflake.ID, fields map[string]any) error {
	return db.WithContext(ctx).
		Model(&domain.Client{}).
		Where("user_id = ? AND id = ?", userID, id).
		Updates(fields).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, id).
		Delete(&domain.Client{})
	return res.RowsAffected, res.Error
}

func (r *repo) CountBudgets(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Table("budgets").
		Where("client_id = ?", id).
		Count(&count).Error
	return count, err
}
