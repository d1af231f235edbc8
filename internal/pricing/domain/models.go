package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ChangeSource identifies which path mutated an effective price.
type ChangeSource string

const (
	SourceRecommendation ChangeSource = "recommendation"
	SourceAdminEdit      ChangeSource = "admin_edit"
	SourceSeed           ChangeSource = "seed"
)

// EffectivePrice is the live price for one service type. There is exactly one
// row per service type; history lives in price_change_log.
type EffectivePrice struct {
	ServiceTypeID snowflake.ID `json:"service_type_id" gorm:"primaryKey"`
	PriceMinor    int64        `json:"price_minor" gorm:"not null"`
	Currency      string       `json:"currency" gorm:"type:text;not null;default:USD"`
	UpdatedBy     string       `json:"updated_by" gorm:"type:text;not null"`
	UpdatedAt     time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (EffectivePrice) TableName() string { return "effective_prices" }

// PriceChange is one append-only audit row for a price mutation.
type PriceChange struct {
	ID               snowflake.ID  `json:"id" gorm:"primaryKey"`
	ServiceTypeID    snowflake.ID  `json:"service_type_id" gorm:"not null;index"`
	RecommendationID *snowflake.ID `json:"recommendation_id,omitempty"`
	OldPriceMinor    int64         `json:"old_price_minor" gorm:"not null"`
	NewPriceMinor    int64         `json:"new_price_minor" gorm:"not null"`
	ChangedBy        string        `json:"changed_by" gorm:"type:text;not null"`
	Source           ChangeSource  `json:"source" gorm:"type:text;not null"`
	CreatedAt        time.Time     `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (PriceChange) TableName() string { return "price_change_log" }
