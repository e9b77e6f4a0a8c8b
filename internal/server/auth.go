package server

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/quoteflow/internal/audit/domain"
	authdomain "github.com/smallbiznis/quoteflow/internal/auth/domain"
	"go.uber.org/zap"
)

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	User      *authdomain.User `json:"user"`
}

func (s *Server) Register(c *gin.Context) {
	var req RegisterRequest
	if err := bindStrictJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	user, err := s.authsvc.Register(c.Request.Context(), authdomain.RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditUser(c, user, "user.register")
	c.JSON(http.StatusCreated, gin.H{"data": user})
}

func (s *Server) Login(c *gin.Context) {
	ctx := c.Request.Context()
	if result := s.loginLimiter.Allow(ctx, c.ClientIP()); !result.Allowed {
		s.obsMetrics.RecordRateLimitDenied(ctx, "auth.login", "ip")
		if result.RetryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(result.RetryAfter.Seconds()))))
		}
		AbortWithError(c, ErrTooManyRequests)
		return
	}

	var req LoginRequest
	if err := bindStrictJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.authsvc.Login(ctx, authdomain.LoginRequest{
		Email:     strings.TrimSpace(req.Email),
		Password:  req.Password,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		s.obsMetrics.RecordLoginAttempt(ctx, "failure")
		AbortWithError(c, err)
		return
	}
	s.obsMetrics.RecordLoginAttempt(ctx, "success")

	s.sessions.Set(c, result.RawToken, result.ExpiresAt)
	s.auditUser(c, result.User, "user.login")

	c.JSON(http.StatusOK, gin.H{"data": loginResponse{
		Token:     result.RawToken,
		ExpiresAt: result.ExpiresAt,
		User:      result.User,
	}})
}

func (s *Server) Logout(c *gin.Context) {
	token, ok := s.sessions.ReadToken(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.authsvc.Logout(c.Request.Context(), token); err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Clear(c)
	c.Status(http.StatusNoContent)
}

func (s *Server) Me(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	user, err := s.authsvc.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": user})
}

func (s *Server) auditUser(c *gin.Context, user *authdomain.User, action string) {
	if s.auditSvc == nil || user == nil {
		return
	}
	id := user.ID.String()
	if err := s.auditSvc.AuditLog(c.Request.Context(), user.ID, auditdomain.ActorTypeUser, &id, action, "user", &id, map[string]any{
		"email": user.Email,
	}); err != nil {
		s.log.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}
