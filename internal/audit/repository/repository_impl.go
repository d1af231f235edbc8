package repository

import (
	"context"
	"time"

	auditdomain "github.com/nivala/pricing/internal/audit/domain"
	"github.com/nivala/pricing/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() auditdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, row *auditdomain.AuditLog) error {
	return db.WithContext(ctx).Create(row).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, p pagination.Pagination) ([]auditdomain.AuditLog, *pagination.PageInfo, error) {
	size := p.PageSize
	if size <= 0 || size > 250 {
		size = 20
	}

	q := db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(size + 1)

	if p.PageToken != "" {
		cursor, err := pagination.DecodeCursor(p.PageToken)
		if err != nil {
			return nil, nil, err
		}
		createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return nil, nil, err
		}
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", createdAt, createdAt, cursor.ID)
	}

	var rows []auditdomain.AuditLog
	if err := q.Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	info := &pagination.PageInfo{}
	if len(rows) > size {
		rows = rows[:size]
		last := rows[len(rows)-1]
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        last.ID.String(),
			CreatedAt: last.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return nil, nil, err
		}
		info.NextPageToken = token
		info.HasMore = true
	}
	return rows, info, nil
}
