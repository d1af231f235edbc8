package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	analyticsdomain "github.com/nivala/pricing/internal/analytics/domain"
)

// GetUsageSnapshot computes the usage window on demand for one service type.
func (s *Server) GetUsageSnapshot(c *gin.Context) {
	var query struct {
		WindowDays string `form:"window_days"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	windowDays := 0
	if raw := strings.TrimSpace(query.WindowDays); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			AbortWithError(c, analyticsdomain.ErrInvalidWindow)
			return
		}
		windowDays = parsed
	}

	serviceTypeID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, analyticsdomain.ErrInvalidServiceType)
		return
	}

	resp, err := s.analyticsSvc.ComputeSnapshot(c.Request.Context(), serviceTypeID, windowDays)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ListUsageSnapshots returns the stored read-model rows the scheduler
// refreshes each cycle.
func (s *Server) ListUsageSnapshots(c *gin.Context) {
	resp, err := s.analyticsSvc.ListSnapshots(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
