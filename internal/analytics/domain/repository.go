package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// AggregateRow is the raw SQL aggregation over session_records for a window.
type AggregateRow struct {
	SessionCount     int     `gorm:"column:session_count"`
	CompletedCount   int     `gorm:"column:completed_count"`
	RatedCount       int     `gorm:"column:rated_count"`
	SatisfactionSum  float64 `gorm:"column:satisfaction_sum"`
	RevenueMinorSum  float64 `gorm:"column:revenue_minor_sum"`
	UniqueUsers      int     `gorm:"column:unique_users"`
}

type Repository interface {
	Aggregate(ctx context.Context, db *gorm.DB, serviceTypeID snowflake.ID, start, end time.Time) (*AggregateRow, error)
	CountSessions(ctx context.Context, db *gorm.DB, serviceTypeID snowflake.ID, start, end time.Time) (int, error)
	UpsertSnapshot(ctx context.Context, db *gorm.DB, id snowflake.ID, snapshot *Snapshot) error
	ListSnapshots(ctx context.Context, db *gorm.DB) ([]Snapshot, error)
}
