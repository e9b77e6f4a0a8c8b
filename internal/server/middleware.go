package server

import (
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/quoteflow/internal/observability/context"
	"github.com/smallbiznis/quoteflow/internal/userctx"
)

const contextUserIDKey = "user_id"

// AuthRequired resolves the session token and scopes the request to its user.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		session, err := s.authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := userctx.WithUserID(c.Request.Context(), session.UserID)
		ctx = obscontext.WithUserID(ctx, session.UserID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextUserIDKey, session.UserID.String())
		c.Next()
	}
}

func (s *Server) userIDFromSession(c *gin.Context) (snowflake.ID, bool) {
	if c == nil || c.Request == nil {
		return 0, false
	}
	return userctx.UserIDFromContext(c.Request.Context())
}
