// Package domain holds the budget aggregate: a budget row, its line items and
// the rules that keep the derived totals consistent with them.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusDraft    Status = "draft"
	StatusSent     Status = "sent"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusCanceled Status = "canceled"
)

// ParseStatus accepts any member of the status set. Transitions are not restricted.
func ParseStatus(raw string) (Status, bool) {
	switch s := Status(raw); s {
	case StatusDraft, StatusSent, StatusApproved, StatusRejected, StatusCanceled:
		return s, true
	}
	return "", false
}

type Unit string

const (
	UnitValue Unit = "vl"
	UnitHour  Unit = "hr"
	UnitUnit  Unit = "un"
)

func ParseUnit(raw string) (Unit, bool) {
	switch u := Unit(raw); u {
	case UnitValue, UnitHour, UnitUnit:
		return u, true
	}
	return "", false
}

// Budget is the aggregate root. Subtotal and Total are derived from Items and
// are only written by the service after a full recomputation.
type Budget struct {
	ID             snowflake.ID    `gorm:"primaryKey" json:"id"`
	UserID         snowflake.ID    `gorm:"column:user_id;not null;index:idx_budgets_user_created,priority:1" json:"-"`
	ClientID       snowflake.ID    `gorm:"column:client_id;not null;index" json:"client_id"`
	PublicID       string          `gorm:"column:public_id;size:36;not null;uniqueIndex" json:"public_id"`
	Status         Status          `gorm:"column:status;type:text;not null" json:"status"`
	Title          string          `gorm:"column:title;type:text;not null" json:"title"`
	Notes          *string         `gorm:"column:notes;type:text" json:"notes,omitempty"`
	ValidUntil     *time.Time      `gorm:"column:valid_until;type:date" json:"valid_until,omitempty"`
	Currency       string          `gorm:"column:currency;size:3;not null" json:"currency"`
	Subtotal       decimal.Decimal `gorm:"column:subtotal;type:numeric(14,2);not null" json:"subtotal"`
	DiscountAmount decimal.Decimal `gorm:"column:discount_amount;type:numeric(14,2);not null" json:"discount_amount"`
	Total          decimal.Decimal `gorm:"column:total;type:numeric(14,2);not null" json:"total"`
	CreatedAt      time.Time       `gorm:"column:created_at;not null;index:idx_budgets_user_created,priority:2" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;not null" json:"updated_at"`

	Items []LineItem `gorm:"foreignKey:BudgetID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

func (Budget) TableName() string { return "budgets" }

type LineItem struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	BudgetID    snowflake.ID    `gorm:"column:budget_id;not null;index:idx_budget_items_budget_order,priority:1" json:"budget_id"`
	ServiceID   *string         `gorm:"column:service_id;type:text" json:"service_id,omitempty"`
	Name        string          `gorm:"column:name;type:text;not null" json:"name"`
	Description *string         `gorm:"column:description;type:text" json:"description,omitempty"`
	Unit        Unit            `gorm:"column:unit;type:text;not null" json:"unit"`
	Quantity    decimal.Decimal `gorm:"column:quantity;type:numeric(14,3);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(14,2);not null" json:"unit_price"`
	LineTotal   decimal.Decimal `gorm:"column:line_total;type:numeric(14,2);not null" json:"line_total"`
	SortOrder   int             `gorm:"column:sort_order;not null;index:idx_budget_items_budget_order,priority:2" json:"sort_order"`
	CreatedAt   time.Time       `gorm:"column:created_at;not null;index:idx_budget_items_budget_order,priority:3" json:"created_at"`
}

func (LineItem) TableName() string { return "budget_items" }

type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	UserID   snowflake.ID
	Status   Status
	ClientID snowflake.ID
	Cursor   *Cursor
	Limit    int
}
