package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	offeringdomain "github.com/nivala/pricing/internal/offering/domain"
)

type createServiceTypeRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func (s *Server) CreateServiceType(c *gin.Context) {
	var req createServiceTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.offeringSvc.Create(c.Request.Context(), offeringdomain.CreateRequest{
		Code: strings.TrimSpace(req.Code),
		Name: strings.TrimSpace(req.Name),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListServiceTypes(c *gin.Context) {
	var query struct {
		Active string `form:"active"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	activeOnly := strings.EqualFold(strings.TrimSpace(query.Active), "true")

	resp, err := s.offeringSvc.List(c.Request.Context(), activeOnly)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetServiceTypeByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.offeringSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
