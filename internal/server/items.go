package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	budgetdomain "github.com/smallbiznis/quoteflow/internal/budget/domain"
)

// itemMutationResponse pairs the touched item with its recomputed budget.
type itemMutationResponse struct {
	Item   *budgetdomain.LineItem `json:"item"`
	Budget *budgetdomain.Budget   `json:"budget"`
}

func (s *Server) ListBudgetItems(c *gin.Context) {
	items, err := s.budgetSvc.ListItems(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) AddBudgetItem(c *gin.Context) {
	var req budgetdomain.ItemInput
	if err := bindStrictJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	item, budget, err := s.budgetSvc.AddItem(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": itemMutationResponse{Item: item, Budget: budget}})
}

func (s *Server) GetBudgetItem(c *gin.Context) {
	item, err := s.budgetSvc.GetItem(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) UpdateBudgetItem(c *gin.Context) {
	var req budgetdomain.UpdateItemRequest
	if err := bindStrictJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	item, budget, err := s.budgetSvc.UpdateItem(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": itemMutationResponse{Item: item, Budget: budget}})
}

// DeleteBudgetItem answers with the recomputed budget instead of an empty body.
func (s *Server) DeleteBudgetItem(c *gin.Context) {
	budget, err := s.budgetSvc.DeleteItem(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": budget})
}
