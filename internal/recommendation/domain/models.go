// Package domain defines price recommendations and their approval lifecycle.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusExpired  Status = "expired"
)

// PriceRecommendation is a proposed price change awaiting an admin decision.
// The generator creates it in pending state and never touches it again; all
// later mutation goes through Decide or the expiry sweep.
type PriceRecommendation struct {
	ID                 snowflake.ID `json:"id" gorm:"primaryKey"`
	ServiceTypeID      snowflake.ID `json:"service_type_id" gorm:"not null"`
	CurrentPriceMinor  int64        `json:"current_price_minor" gorm:"not null"`
	ProposedPriceMinor int64        `json:"proposed_price_minor" gorm:"not null"`
	PercentDelta       float64      `json:"percent_delta" gorm:"not null"`
	Confidence         float64      `json:"confidence" gorm:"not null"`
	Reasoning          string       `json:"reasoning" gorm:"type:text;not null"`
	Status             Status       `json:"status" gorm:"type:text;not null;default:pending"`
	GeneratedAt        time.Time    `json:"generated_at" gorm:"not null"`
	ExpiresAt          time.Time    `json:"expires_at" gorm:"not null"`
	DecidedAt          *time.Time   `json:"decided_at,omitempty"`
	DecidedBy          *string      `json:"decided_by,omitempty" gorm:"type:text"`
	CreatedAt          time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (PriceRecommendation) TableName() string { return "price_recommendations" }

var (
	// ErrInsufficientData reports a window too thin to recommend on. Not a
	// failure from the admin's point of view, just "no recommendation".
	ErrInsufficientData = errors.New("insufficient_data")

	// ErrInvalidPriceState reports a current price of zero or less. That is
	// corrupt upstream state and must not be papered over.
	ErrInvalidPriceState = errors.New("invalid_price_state")

	ErrDuplicatePending = errors.New("duplicate_pending")
	ErrAlreadyDecided   = errors.New("already_decided")
	ErrNotFound         = errors.New("recommendation_not_found")
	ErrInvalidID        = errors.New("invalid_recommendation_id")
	ErrInvalidStatus    = errors.New("invalid_status_filter")
)
