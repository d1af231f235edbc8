package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nivala/pricing/internal/observability/logger"
	"github.com/nivala/pricing/internal/scheduler"
	"go.uber.org/zap"
)

type analysisRunner interface {
	RunOnce(ctx context.Context) (*scheduler.CycleResult, error)
}

// RunAnalysis triggers one analysis cycle on demand. It shares the
// scheduler's overlap guard, so a manual trigger during the nightly run
// answers 409. A cycle that ran but had per-type failures still returns its
// counts; the failed count is the admin's signal to check the logs.
func (s *Server) RunAnalysis(c *gin.Context) {
	resp, err := s.scheduler.RunOnce(c.Request.Context())
	if resp == nil {
		AbortWithError(c, err)
		return
	}
	if err != nil {
		logger.FromContext(c.Request.Context()).Warn("analysis cycle finished with errors", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
