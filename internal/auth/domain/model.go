// Package domain contains core types for the auth service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// User represents a registered account. Every other aggregate is scoped to a user.
type User struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	Name         string       `gorm:"type:text;not null" json:"name"`
	Email        string       `gorm:"column:email;type:text;not null;uniqueIndex" json:"email"`
	PasswordHash string       `gorm:"column:password_hash;type:text;not null" json:"-"`
	IsActive     bool         `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// Session represents a persisted login session.
type Session struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	UserID           snowflake.ID `gorm:"column:user_id;not null;index"`
	SessionTokenHash string       `gorm:"column:session_token_hash;type:text;not null;uniqueIndex"`
	UserAgent        string       `gorm:"column:user_agent;type:text"`
	IPAddress        string       `gorm:"column:ip_address;type:text"`
	ExpiresAt        time.Time    `gorm:"column:expires_at;not null;index"`
	RevokedAt        *time.Time   `gorm:"column:revoked_at"`
	CreatedAt        time.Time    `gorm:"column:created_at;not null"`
	LastSeenAt       time.Time    `gorm:"column:last_seen_at;not null"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "sessions" }
