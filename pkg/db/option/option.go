// Package option holds composable query modifiers for the generic store.
package option

import (
	"fmt"

	"gorm.io/gorm"
)

type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

// QueryOptionFunc adapts a function to QueryOption.
type QueryOptionFunc func(db *gorm.DB) *gorm.DB

func (f QueryOptionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

// WithOrder orders by column. Direction is "asc" or "desc"; anything else means asc.
func WithOrder(column, direction string) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if direction != "desc" {
			direction = "asc"
		}
		return db.Order(fmt.Sprintf("%s %s", column, direction))
	})
}

func WithLimit(limit int) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		return db.Limit(limit)
	})
}

func WithWhere(query string, args ...any) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where(query, args...)
	})
}
