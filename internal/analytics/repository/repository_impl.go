package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	analyticsdomain "github.com/nivala/pricing/internal/analytics/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() analyticsdomain.Repository {
	return &repo{}
}

func (r *repo) Aggregate(ctx context.Context, db *gorm.DB, serviceTypeID snowflake.ID, start, end time.Time) (*analyticsdomain.AggregateRow, error) {
	var row analyticsdomain.AggregateRow
	err := db.WithContext(ctx).Raw(
		`SELECT
			COUNT(*) AS session_count,
			COALESCE(SUM(CASE WHEN completed THEN 1 ELSE 0 END), 0) AS completed_count,
			COALESCE(SUM(CASE WHEN satisfaction IS NOT NULL THEN 1 ELSE 0 END), 0) AS rated_count,
			COALESCE(SUM(CASE WHEN satisfaction IS NOT NULL THEN satisfaction ELSE 0 END), 0) AS satisfaction_sum,
			COALESCE(SUM(revenue_minor), 0) AS revenue_minor_sum,
			COUNT(DISTINCT user_ref) AS unique_users
		 FROM session_records
		 WHERE service_type_id = ?
		   AND ended_at >= ?
		   AND ended_at <= ?`,
		serviceTypeID,
		start,
		end,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repo) CountSessions(ctx context.Context, db *gorm.DB, serviceTypeID snowflake.ID, start, end time.Time) (int, error) {
	var count int
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*)
		 FROM session_records
		 WHERE service_type_id = ?
		   AND ended_at >= ?
		   AND ended_at < ?`,
		serviceTypeID,
		start,
		end,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) UpsertSnapshot(ctx context.Context, db *gorm.DB, id snowflake.ID, snapshot *analyticsdomain.Snapshot) error {
	result := db.WithContext(ctx).Exec(
		`UPDATE usage_snapshots
		 SET window_start = ?, window_end = ?, session_count = ?, completed_count = ?,
		     completion_rate = ?, mean_satisfaction = ?, mean_revenue_minor = ?,
		     unique_users = ?, generated_at = ?
		 WHERE service_type_id = ?`,
		snapshot.WindowStart,
		snapshot.WindowEnd,
		snapshot.SessionCount,
		snapshot.CompletedCount,
		snapshot.CompletionRate,
		snapshot.MeanSatisfaction,
		snapshot.MeanRevenueMinor,
		snapshot.UniqueUsers,
		snapshot.GeneratedAt,
		snapshot.ServiceTypeID,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO usage_snapshots (
			id, service_type_id, window_start, window_end, session_count,
			completed_count, completion_rate, mean_satisfaction,
			mean_revenue_minor, unique_users, generated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		snapshot.ServiceTypeID,
		snapshot.WindowStart,
		snapshot.WindowEnd,
		snapshot.SessionCount,
		snapshot.CompletedCount,
		snapshot.CompletionRate,
		snapshot.MeanSatisfaction,
		snapshot.MeanRevenueMinor,
		snapshot.UniqueUsers,
		snapshot.GeneratedAt,
	).Error
}

func (r *repo) ListSnapshots(ctx context.Context, db *gorm.DB) ([]analyticsdomain.Snapshot, error) {
	var items []analyticsdomain.Snapshot
	err := db.WithContext(ctx).Raw(
		`SELECT service_type_id, window_start, window_end, session_count,
		        completed_count, completion_rate, mean_satisfaction,
		        mean_revenue_minor, unique_users, generated_at
		 FROM usage_snapshots
		 ORDER BY service_type_id ASC`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
