package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Record(ctx context.Context, req RecordRequest) (*SessionRecord, error)
}

type RecordRequest struct {
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

var (
	ErrInvalidServiceType  = errors.New("invalid_service_type")
	ErrInvalidUserRef      = errors.New("invalid_user_ref")
	ErrInvalidTimeRange    = errors.New("invalid_time_range")
	ErrInvalidSatisfaction = errors.New("invalid_satisfaction")
	ErrInvalidRevenue      = errors.New("invalid_revenue")
)
