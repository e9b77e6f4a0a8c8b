package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/quoteflow/internal/auth/domain"
	"github.com/smallbiznis/quoteflow/internal/auth/password"
	"github.com/smallbiznis/quoteflow/internal/clock"
	"github.com/smallbiznis/quoteflow/internal/config"
	"github.com/smallbiznis/quoteflow/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	sessionTokenBytes = 32
	defaultSessionTTL = 24 * time.Hour

	minNameLength     = 4
	minPasswordLength = 8
)

type Params struct {
	fx.In

	Log         *zap.Logger
	Cfg         config.Config
	Clock       clock.Clock
	GenID       *snowflake.Node
	Repo        domain.Repository
	SessionRepo domain.SessionRepository
}

type Service struct {
	log         *zap.Logger
	clock       clock.Clock
	genID       *snowflake.Node
	repo        domain.Repository
	sessionRepo domain.SessionRepository
	sessionTTL  time.Duration
}

func New(p Params) domain.Service {
	ttl := p.Cfg.AuthSessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		log:         p.Log.Named("auth.service"),
		clock:       clk,
		genID:       p.GenID,
		repo:        p.Repo,
		sessionRepo: p.SessionRepo,
		sessionTTL:  ttl,
	}
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	name := strings.TrimSpace(req.Name)
	if len([]rune(name)) < minNameLength {
		return nil, domain.ErrInvalidName
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidEmail
	}
	if len(req.Password) < minPasswordLength {
		return nil, domain.ErrInvalidPassword
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	user := &domain.User{
		ID:           s.genID.Generate(),
		Name:         name,
		Email:        email,
		PasswordHash: hashed,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrUserExists
		}
		return nil, err
	}

	s.log.Info("user registered", zap.String("user_id", user.ID.String()))
	return user, nil
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil || req.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !password.Verify(req.Password, user.PasswordHash) || !user.IsActive {
		return nil, domain.ErrInvalidCredentials
	}

	rawToken, err := newSessionToken()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	session := &domain.Session{
		ID:               s.genID.Generate(),
		UserID:           user.ID,
		SessionTokenHash: hashToken(rawToken),
		UserAgent:        strings.TrimSpace(req.UserAgent),
		IPAddress:        strings.TrimSpace(req.IPAddress),
		ExpiresAt:        now.Add(s.sessionTTL),
		CreatedAt:        now,
		LastSeenAt:       now,
	}
	if err := s.sessionRepo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	return &domain.LoginResult{
		User:      user,
		RawToken:  rawToken,
		ExpiresAt: session.ExpiresAt,
		SessionID: session.ID,
	}, nil
}

func (s *Service) Logout(ctx context.Context, rawToken string) error {
	session, err := s.lookup(ctx, rawToken)
	if err != nil {
		return err
	}
	if session.RevokedAt != nil {
		return nil
	}
	return s.sessionRepo.RevokeSession(ctx, session.ID, s.clock.Now())
}

func (s *Service) Authenticate(ctx context.Context, rawToken string) (*domain.Session, error) {
	session, err := s.lookup(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if session.RevokedAt != nil {
		return nil, domain.ErrSessionRevoked
	}
	if now.After(session.ExpiresAt) {
		return nil, domain.ErrSessionExpired
	}

	if err := s.sessionRepo.UpdateLastSeen(ctx, session.ID, now); err != nil {
		return nil, err
	}
	session.LastSeenAt = now
	return session, nil
}

func (s *Service) CurrentUser(ctx context.Context, userID snowflake.ID) (*domain.User, error) {
	if userID == 0 {
		return nil, domain.ErrUserNotFound
	}
	return s.repo.FindByID(ctx, userID)
}

func (s *Service) lookup(ctx context.Context, rawToken string) (*domain.Session, error) {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return nil, domain.ErrInvalidSession
	}

	session, err := s.sessionRepo.GetSessionByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrInvalidSession
		}
		return nil, err
	}
	return session, nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}

func newSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
