package repository

import (
	"context"

	sessiondomain "github.com/nivala/pricing/internal/session/domain"
	"github.com/nivala/pricing/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() sessiondomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, record *sessiondomain.SessionRecord) (bool, error) {
	err := conn.WithContext(ctx).Exec(
		`INSERT INTO session_records (
			id, service_type_id, user_ref, started_at, ended_at, completed,
			satisfaction, revenue_minor, credit_cost, idempotency_key, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.ServiceTypeID,
		record.UserRef,
		record.StartedAt,
		record.EndedAt,
		record.Completed,
		record.Satisfaction,
		record.RevenueMinor,
		record.CreditCost,
		record.IdempotencyKey,
		record.CreatedAt,
	).Error
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *repo) FindByIdempotencyKey(ctx context.Context, conn *gorm.DB, key string) (*sessiondomain.SessionRecord, error) {
	var record sessiondomain.SessionRecord
	err := conn.WithContext(ctx).Raw(
		`SELECT id, service_type_id, user_ref, started_at, ended_at, completed,
		        satisfaction, revenue_minor, credit_cost, idempotency_key, created_at
		 FROM session_records WHERE idempotency_key = ?`,
		key,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}
