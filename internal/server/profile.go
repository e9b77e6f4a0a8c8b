package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	profiledomain "github.com/smallbiznis/quoteflow/internal/profile/domain"
)

func (s *Server) GetProfile(c *gin.Context) {
	resp, err := s.profileSvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// UpsertProfile replaces the caller's profile, creating it on first use.
func (s *Server) UpsertProfile(c *gin.Context) {
	var req profiledomain.UpsertProfileRequest
	if err := bindStrictJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, created, err := s.profileSvc.Upsert(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"data": resp})
}

func (s *Server) DeleteProfile(c *gin.Context) {
	if err := s.profileSvc.Delete(c.Request.Context()); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
