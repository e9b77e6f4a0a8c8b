package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id snowflake.ID) (*User, error)
}

type SessionRepository interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (*Session, error)
	UpdateLastSeen(ctx context.Context, sessionID snowflake.ID, lastSeen time.Time) error
	RevokeSession(ctx context.Context, sessionID snowflake.ID, revokedAt time.Time) error
	// PurgeSessions deletes up to limit sessions that expired or were revoked before cutoff.
	PurgeSessions(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}
