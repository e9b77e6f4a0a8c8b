package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	clientdomain "github.com/smallbiznis/quoteflow/internal/client/domain"
)

func (s *Server) CreateClient(c *gin.Context) {
	var req clientdomain.CreateClientRequest
	if err := bindStrictJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.clientSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListClients(c *gin.Context) {
	var query clientdomain.ListClientRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	query.Name = strings.TrimSpace(query.Name)
	query.Email = strings.TrimSpace(query.Email)
	query.PageToken = strings.TrimSpace(query.PageToken)

	resp, err := s.clientSvc.List(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Clients, "page_info": resp.PageInfo})
}

func (s *Server) GetClientByID(c *gin.Context) {
	resp, err := s.clientSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateClient(c *gin.Context) {
	var req clientdomain.UpdateClientRequest
	if err := bindStrictJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.clientSvc.Update(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteClient(c *gin.Context) {
	if err := s.clientSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
