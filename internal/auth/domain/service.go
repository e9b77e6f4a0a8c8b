package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*User, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, rawToken string) error
	Authenticate(ctx context.Context, rawToken string) (*Session, error)
	CurrentUser(ctx context.Context, userID snowflake.ID) (*User, error)
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	UserAgent string `json:"-"`
	IPAddress string `json:"-"`
}

type LoginResult struct {
	User      *User
	RawToken  string
	ExpiresAt time.Time
	SessionID snowflake.ID
}
