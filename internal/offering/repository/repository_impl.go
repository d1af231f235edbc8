package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	offeringdomain "github.com/nivala/pricing/internal/offering/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() offeringdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, st *offeringdomain.ServiceType) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO service_types (id, code, name, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		st.ID,
		st.Code,
		st.Name,
		st.Active,
		st.CreatedAt,
		st.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*offeringdomain.ServiceType, error) {
	var st offeringdomain.ServiceType
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, active, created_at, updated_at
		 FROM service_types WHERE id = ?`,
		id,
	).Scan(&st).Error
	if err != nil {
		return nil, err
	}
	if st.ID == 0 {
		return nil, nil
	}
	return &st, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*offeringdomain.ServiceType, error) {
	var st offeringdomain.ServiceType
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, active, created_at, updated_at
		 FROM service_types WHERE code = ?`,
		strings.TrimSpace(code),
	).Scan(&st).Error
	if err != nil {
		return nil, err
	}
	if st.ID == 0 {
		return nil, nil
	}
	return &st, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, activeOnly bool) ([]offeringdomain.ServiceType, error) {
	query := `SELECT id, code, name, active, created_at, updated_at
	 FROM service_types`
	if activeOnly {
		query += ` WHERE active = true`
	}
	query += ` ORDER BY created_at ASC`

	var items []offeringdomain.ServiceType
	if err := db.WithContext(ctx).Raw(query).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
