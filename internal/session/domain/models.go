// Package domain contains persistence models for session fact records.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// SessionRecord is one completed or abandoned user interaction. Records are
// immutable once written; the aggregator reads them over a rolling window.
type SessionRecord struct {
	ID             snowflake.ID `json:"id" gorm:"primaryKey"`
	ServiceTypeID  snowflake.ID `json:"service_type_id" gorm:"not null;index"`
	UserRef        string       `json:"user_ref" gorm:"type:text;not null"`
	StartedAt      time.Time    `json:"started_at" gorm:"not null"`
	EndedAt        time.Time    `json:"ended_at" gorm:"not null"`
	Completed      bool         `json:"completed" gorm:"not null"`
	Satisfaction   *int16       `json:"satisfaction,omitempty"` // 0-5, optional
	RevenueMinor   int64        `json:"revenue_minor" gorm:"not null;default:0"`
	CreditCost     int32        `json:"credit_cost" gorm:"not null;default:0"`
	IdempotencyKey *string      `json:"-" gorm:"type:text"`
	CreatedAt      time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (SessionRecord) TableName() string { return "session_records" }
