package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	pricingdomain "github.com/nivala/pricing/internal/pricing/domain"
)

// DecideRequest carries one admin decision on a pending recommendation.
type DecideRequest struct {
	RecommendationID string
	AdminID          string
	Approve          bool
}

// DecideResult reports the outcome. EffectivePrice is set only on approval.
type DecideResult struct {
	Recommendation *PriceRecommendation          `json:"recommendation"`
	EffectivePrice *pricingdomain.EffectivePrice `json:"effective_price,omitempty"`
}

type Service interface {
	// Submit persists a freshly generated recommendation in pending state.
	// At most one un-expired pending recommendation may exist per service
	// type; a second submit fails with ErrDuplicatePending.
	Submit(ctx context.Context, rec *PriceRecommendation) (snowflake.ID, error)

	// Decide approves or rejects a pending recommendation. Approval flips
	// the status, applies the price and appends the audit row in one
	// transaction. A second decide on the same id fails with
	// ErrAlreadyDecided.
	Decide(ctx context.Context, req DecideRequest) (*DecideResult, error)

	Get(ctx context.Context, id string) (*PriceRecommendation, error)
	List(ctx context.Context, status string, limit int) ([]PriceRecommendation, error)

	// ExpireStale sweeps pending recommendations past their expiry window.
	ExpireStale(ctx context.Context) (int64, error)
}
