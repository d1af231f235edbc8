package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Service owns all mutation of effective prices. Both the recommendation
// approval path and the direct admin edit funnel through ApplyChange so that
// every mutation lands in price_change_log.
type Service interface {
	Get(ctx context.Context, serviceTypeID string) (*EffectivePrice, error)
	List(ctx context.Context) ([]EffectivePrice, error)
	History(ctx context.Context, serviceTypeID string, limit int) ([]PriceChange, error)

	// Update is the direct admin edit path; it runs its own transaction.
	Update(ctx context.Context, req UpdateRequest) (*EffectivePrice, error)

	// ApplyChange mutates the price inside the caller's transaction. The
	// recommendation approval gate uses it so the status flip, the price
	// write and the change-log row commit or roll back together.
	ApplyChange(ctx context.Context, tx *gorm.DB, change ApplyRequest) (*EffectivePrice, error)
}

type UpdateRequest struct {
	ServiceTypeID string `json:"-"`
	PriceMinor    int64  `json:"price_minor"`
	ChangedBy     string `json:"-"`
}

type ApplyRequest struct {
	ServiceTypeID    snowflake.ID
	NewPriceMinor    int64
	ChangedBy        string
	Source           ChangeSource
	RecommendationID *snowflake.ID
}

var (
	ErrInvalidID    = errors.New("invalid_id")
	ErrInvalidPrice = errors.New("invalid_price")
	ErrNotFound     = errors.New("not_found")
)
