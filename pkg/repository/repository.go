// Package repository provides a generic gorm-backed store for simple aggregates.
package repository

import (
	"context"

	"github.com/smallbiznis/quoteflow/pkg/db/option"
	"gorm.io/gorm"
)

type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	// FindOne returns nil, nil when nothing matches.
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Update(ctx context.Context, resourceID int64, fields map[string]any) error
	Delete(ctx context.Context, resourceID int64) (int64, error)
	Count(ctx context.Context, query *T) (int64, error)
}
