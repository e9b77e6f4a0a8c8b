package server

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// authorize checks the role policy for object and action. Row ownership is
// enforced later by the domain services.
func (s *Server) authorize(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.authorizeWithContext(c, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) authorizeWithContext(c *gin.Context, object string, action string) error {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		return ErrUnauthorized
	}
	if s.authzSvc == nil {
		return ErrForbidden
	}
	return s.authzSvc.Authorize(c.Request.Context(), userID, strings.TrimSpace(object), strings.TrimSpace(action))
}
