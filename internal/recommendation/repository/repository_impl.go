package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	recdomain "github.com/nivala/pricing/internal/recommendation/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() recdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, rec *recdomain.PriceRecommendation) error {
	return db.WithContext(ctx).Create(rec).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*recdomain.PriceRecommendation, error) {
	var rec recdomain.PriceRecommendation
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *repo) FindPendingByServiceType(ctx context.Context, db *gorm.DB, serviceTypeID snowflake.ID) (*recdomain.PriceRecommendation, error) {
	var rec recdomain.PriceRecommendation
	err := db.WithContext(ctx).
		Where("service_type_id = ? AND status = ?", serviceTypeID, recdomain.StatusPending).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, status recdomain.Status, limit int) ([]recdomain.PriceRecommendation, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	q := db.WithContext(ctx).Order("generated_at DESC, id DESC").Limit(limit)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var items []recdomain.PriceRecommendation
	if err := q.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// MarkDecided relies on the status guard in the WHERE clause: of two racing
// deciders exactly one update matches the pending row.
func (r *repo) MarkDecided(ctx context.Context, db *gorm.DB, id snowflake.ID, status recdomain.Status, decidedBy string, decidedAt time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE price_recommendations
		 SET status = ?, decided_by = ?, decided_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		status, decidedBy, decidedAt, decidedAt, id, recdomain.StatusPending,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) ExpirePending(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE price_recommendations
		 SET status = ?, updated_at = ?
		 WHERE status = ? AND expires_at <= ?`,
		recdomain.StatusExpired, now, recdomain.StatusPending, now,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
