package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	adminkeydomain "github.com/nivala/pricing/internal/adminkey/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() adminkeydomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, key *adminkeydomain.AdminAPIKey) error {
	return db.WithContext(ctx).Create(key).Error
}

func (r *repo) FindByHash(ctx context.Context, db *gorm.DB, keyHash string) (*adminkeydomain.AdminAPIKey, error) {
	var key adminkeydomain.AdminAPIKey
	err := db.WithContext(ctx).
		Where("key_hash = ?", keyHash).
		First(&key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &key, nil
}

func (r *repo) TouchLastUsed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE admin_api_keys SET last_used_at = ? WHERE id = ?`,
		at, id,
	).Error
}
