package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Client is a customer record owned by a single user.
type Client struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID    snowflake.ID `gorm:"column:user_id;not null;uniqueIndex:ux_clients_user_email,priority:1" json:"-"`
	Name      string       `gorm:"column:name;type:text;not null" json:"name"`
	Email     string       `gorm:"column:email;type:text;not null;uniqueIndex:ux_clients_user_email,priority:2" json:"email"`
	Whatsapp  *string      `gorm:"column:whatsapp;type:text" json:"whatsapp,omitempty"`
	Notes     *string      `gorm:"column:notes;type:text" json:"notes,omitempty"`
	CreatedAt time.Time    `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (Client) TableName() string { return "clients" }

type ListFilter struct {
	UserID snowflake.ID
	Name   string
	Email  string
	Cursor *Cursor
	Limit  int
}

type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}
