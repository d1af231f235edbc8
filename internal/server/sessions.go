package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	sessiondomain "github.com/nivala/pricing/internal/session/domain"
)

type recordSessionRequest struct {
	ServiceTypeID  string    `json:"service_type_id"`
	UserRef        string    `json:"user_ref"`
	StartedAt      time.Time `json:"started_at"`
	EndedAt        time.Time `json:"ended_at"`
	Completed      bool      `json:"completed"`
	Satisfaction   *int16    `json:"satisfaction"`
	RevenueMinor   int64     `json:"revenue_minor"`
	CreditCost     int32     `json:"credit_cost"`
	IdempotencyKey string    `json:"idempotency_key"`
}

func (s *Server) RecordSession(c *gin.Context) {
	var req recordSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.sessionSvc.Record(c.Request.Context(), sessiondomain.RecordRequest{
		ServiceTypeID:  strings.TrimSpace(req.ServiceTypeID),
		UserRef:        strings.TrimSpace(req.UserRef),
		StartedAt:      req.StartedAt,
		EndedAt:        req.EndedAt,
		Completed:      req.Completed,
		Satisfaction:   req.Satisfaction,
		RevenueMinor:   req.RevenueMinor,
		CreditCost:     req.CreditCost,
		IdempotencyKey: strings.TrimSpace(req.IdempotencyKey),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
