package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	budgetdomain "github.com/smallbiznis/quoteflow/internal/budget/domain"
	"github.com/smallbiznis/quoteflow/internal/budget/render"
)

func (s *Server) CreateBudget(c *gin.Context) {
	var req budgetdomain.CreateBudgetRequest
	if err := bindStrictJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.budgetSvc.CreateBudget(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListBudgets(c *gin.Context) {
	var query budgetdomain.ListBudgetRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.budgetSvc.ListBudgets(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Budgets, "page_info": resp.PageInfo})
}

func (s *Server) GetBudgetByID(c *gin.Context) {
	resp, err := s.budgetSvc.GetBudget(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateBudget(c *gin.Context) {
	var req budgetdomain.UpdateBudgetRequest
	if err := bindStrictJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.budgetSvc.UpdateBudgetFields(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteBudget(c *gin.Context) {
	if err := s.budgetSvc.DeleteBudget(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) ExportBudgetPDF(c *gin.Context) {
	doc, err := s.renderer.Render(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Data(http.StatusOK, render.ContentType, doc.Content)
}

func (s *Server) GetPublicBudget(c *gin.Context) {
	resp, err := s.budgetSvc.GetPublicBudget(c.Request.Context(), strings.TrimSpace(c.Param("public_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
