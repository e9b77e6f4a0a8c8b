package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/quoteflow/internal/clock"
	"github.com/smallbiznis/quoteflow/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const keyLoginAttempts = "auth:login:ip:%s"

// Bucket admits or rejects one request for key.
type Bucket interface {
	Allow(ctx context.Context, key string, rate float64, burst int) (*RateLimitResult, error)
}

// LoginLimiter throttles login attempts per client IP.
type LoginLimiter struct {
	bucket Bucket
	rate   float64
	burst  int
	log    *zap.Logger
}

type LoginLimiterParams struct {
	fx.In

	Lc    fx.Lifecycle `optional:"true"`
	Cfg   config.Config
	Clock clock.Clock
	Log   *zap.Logger
}

// NewLoginLimiter uses redis when rate limiting is enabled and a process-local bucket otherwise.
func NewLoginLimiter(p LoginLimiterParams) (*LoginLimiter, error) {
	limitCfg := p.Cfg.RateLimit
	if limitCfg.LoginRate <= 0 || limitCfg.LoginBurst <= 0 {
		return nil, errors.New("login rate limit must be positive")
	}
	log := p.Log.Named("ratelimit.login")

	var bucket Bucket
	if limitCfg.Enabled {
		addr := strings.TrimSpace(limitCfg.RedisAddr)
		if addr == "" {
			return nil, errors.New("rate limit redis addr is required")
		}
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: strings.TrimSpace(limitCfg.RedisPassword),
			DB:       limitCfg.RedisDB,
		})
		if p.Lc != nil {
			p.Lc.Append(fx.Hook{OnStop: func(context.Context) error { return client.Close() }})
		}
		bucket = NewTokenBucket(client)
		log.Info("login rate limit backed by redis", zap.String("addr", addr))
	} else {
		bucket = NewMemoryBucket(p.Clock.Now)
	}

	return NewLoginLimiterWithBucket(bucket, limitCfg.LoginRate, limitCfg.LoginBurst, log), nil
}

func NewLoginLimiterWithBucket(bucket Bucket, rate float64, burst int, log *zap.Logger) *LoginLimiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoginLimiter{bucket: bucket, rate: rate, burst: burst, log: log}
}

// Allow fails open when the backing store errors so an outage never blocks logins.
func (l *LoginLimiter) Allow(ctx context.Context, clientIP string) *RateLimitResult {
	if l == nil || l.bucket == nil {
		return &RateLimitResult{Allowed: true}
	}
	key := fmt.Sprintf(keyLoginAttempts, strings.TrimSpace(clientIP))
	result, err := l.bucket.Allow(ctx, key, l.rate, l.burst)
	if err != nil {
		l.log.Warn("login rate limit check failed", zap.Error(err))
		return &RateLimitResult{Allowed: true, Limit: l.burst}
	}
	return result
}
