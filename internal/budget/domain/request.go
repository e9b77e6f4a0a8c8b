package domain

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/quoteflow/pkg/db/pagination"
)

type ItemInput struct {
	ServiceID   *string         `json:"service_id"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Unit        string          `json:"unit"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	SortOrder   int             `json:"sort_order"`
}

type BudgetFields struct {
	ClientID       string          `json:"client_id"`
	Status         string          `json:"status"`
	Title          string          `json:"title"`
	Notes          *string         `json:"notes"`
	ValidUntil     *string         `json:"valid_until"`
	Currency       string          `json:"currency"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

type CreateBudgetRequest struct {
	Budget BudgetFields `json:"budget"`
	Items  []ItemInput  `json:"items"`
}

// UpdateBudgetRequest lists every field a budget update may touch. Nil means
// unchanged; an empty Notes or ValidUntil clears the stored value.
type UpdateBudgetRequest struct {
	ClientID       *string          `json:"client_id"`
	Status         *string          `json:"status"`
	Title          *string          `json:"title"`
	Notes          *string          `json:"notes"`
	ValidUntil     *string          `json:"valid_until"`
	Currency       *string          `json:"currency"`
	DiscountAmount *decimal.Decimal `json:"discount_amount"`
}

type UpdateItemRequest struct {
	ServiceID   *string          `json:"service_id"`
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Unit        *string          `json:"unit"`
	Quantity    *decimal.Decimal `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	SortOrder   *int             `json:"sort_order"`
}

type ListBudgetRequest struct {
	pagination.Pagination
	Status   string `form:"status"`
	ClientID string `form:"client_id"`
}

type ListBudgetResponse struct {
	pagination.PageInfo
	Budgets []Budget `json:"budgets"`
}

// PublicBudget is the read-only view served to anyone holding the public id.
type PublicBudget struct {
	PublicID       string           `json:"public_id"`
	Status         Status           `json:"status"`
	Title          string           `json:"title"`
	Notes          *string          `json:"notes,omitempty"`
	ValidUntil     *string          `json:"valid_until,omitempty"`
	Currency       string           `json:"currency"`
	Subtotal       decimal.Decimal  `json:"subtotal"`
	DiscountAmount decimal.Decimal  `json:"discount_amount"`
	Total          decimal.Decimal  `json:"total"`
	Items          []PublicLineItem `json:"items"`
}

type PublicLineItem struct {
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Unit        Unit            `json:"unit"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

type Service interface {
	CreateBudget(ctx context.Context, req CreateBudgetRequest) (*Budget, error)
	UpdateBudgetFields(ctx context.Context, budgetID string, req UpdateBudgetRequest) (*Budget, error)
	DeleteBudget(ctx context.Context, budgetID string) error
	GetBudget(ctx context.Context, budgetID string) (*Budget, error)
	ListBudgets(ctx context.Context, req ListBudgetRequest) (ListBudgetResponse, error)

	AddItem(ctx context.Context, budgetID string, req ItemInput) (*LineItem, *Budget, error)
	UpdateItem(ctx context.Context, itemID string, req UpdateItemRequest) (*LineItem, *Budget, error)
	DeleteItem(ctx context.Context, itemID string) (*Budget, error)
	GetItem(ctx context.Context, itemID string) (*LineItem, error)
	ListItems(ctx context.Context, budgetID string) ([]LineItem, error)

	GetPublicBudget(ctx context.Context, publicID string) (*PublicBudget, error)
}
