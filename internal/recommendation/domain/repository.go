package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, rec *PriceRecommendation) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PriceRecommendation, error)
	FindPendingByServiceType(ctx context.Context, db *gorm.DB, serviceTypeID snowflake.ID) (*PriceRecommendation, error)
	List(ctx context.Context, db *gorm.DB, status Status, limit int) ([]PriceRecommendation, error)

	// MarkDecided flips pending to approved or rejected with a guarded
	// update. Returns false when the row was not pending anymore, so racing
	// deciders see exactly one winner.
	MarkDecided(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status, decidedBy string, decidedAt time.Time) (bool, error)

	// ExpirePending transitions every pending recommendation whose expiry
	// has passed. Returns the number of rows expired.
	ExpirePending(ctx context.Context, db *gorm.DB, now time.Time) (int64, error)
}
