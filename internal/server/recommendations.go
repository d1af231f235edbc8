package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	recommendationdomain "github.com/nivala/pricing/internal/recommendation/domain"
)

type decideRecommendationRequest struct {
	Approve *bool `json:"approve"`
}

func (s *Server) ListRecommendations(c *gin.Context) {
	var query struct {
		Status string `form:"status"`
		Limit  string `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	limit := 0
	if raw := strings.TrimSpace(query.Limit); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
			return
		}
		limit = parsed
	}

	resp, err := s.recSvc.List(c.Request.Context(), strings.TrimSpace(query.Status), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetRecommendationByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.recSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DecideRecommendation(c *gin.Context) {
	var req decideRecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.Approve == nil {
		AbortWithError(c, newValidationError("approve", "invalid_approve", "approve is required"))
		return
	}

	resp, err := s.recSvc.Decide(c.Request.Context(), recommendationdomain.DecideRequest{
		RecommendationID: strings.TrimSpace(c.Param("id")),
		AdminID:          actorFromContext(c),
		Approve:          *req.Approve,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
