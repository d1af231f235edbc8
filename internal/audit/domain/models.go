// Package domain defines the append-only audit trail for admin actions and
// system-initiated price changes.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/nivala/pricing/pkg/db/pagination"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ActorType string

const (
	ActorAdmin  ActorType = "admin"
	ActorSystem ActorType = "system"
)

type AuditLog struct {
	ID         snowflake.ID   `json:"id" gorm:"primaryKey"`
	ActorType  ActorType      `json:"actor_type" gorm:"type:text;not null"`
	ActorID    *string        `json:"actor_id,omitempty" gorm:"type:text"`
	Action     string         `json:"action" gorm:"type:text;not null"`
	TargetType string         `json:"target_type" gorm:"type:text;not null"`
	TargetID   *string        `json:"target_id,omitempty" gorm:"type:text"`
	Metadata   datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (AuditLog) TableName() string { return "audit_logs" }

// Entry is one action to record. Metadata must marshal to JSON.
type Entry struct {
	ActorType  ActorType
	ActorID    string
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, row *AuditLog) error
	List(ctx context.Context, db *gorm.DB, p pagination.Pagination) ([]AuditLog, *pagination.PageInfo, error)
}

type Service interface {
	// Record appends an audit row inside the caller's transaction so the
	// trail commits or rolls back with the action it describes.
	Record(ctx context.Context, tx *gorm.DB, entry Entry) error

	List(ctx context.Context, p pagination.Pagination) ([]AuditLog, *pagination.PageInfo, error)
}

var ErrInvalidEntry = errors.New("invalid_audit_entry")
