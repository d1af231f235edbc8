package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type createAdminKeyRequest struct {
	Name string `json:"name"`
}

// CreateAdminKey issues a named admin key. The raw secret is returned once
// and never stored.
func (s *Server) CreateAdminKey(c *gin.Context) {
	var req createAdminKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	key, raw, err := s.adminKeySvc.Create(c.Request.Context(), strings.TrimSpace(req.Name))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": key,
		"key":  raw,
	})
}
