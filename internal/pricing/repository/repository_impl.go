package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	pricingdomain "github.com/nivala/pricing/internal/pricing/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() pricingdomain.Repository {
	return &repo{}
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, serviceTypeID snowflake.ID) (*pricingdomain.EffectivePrice, error) {
	var price pricingdomain.EffectivePrice
	err := db.WithContext(ctx).Raw(
		`SELECT service_type_id, price_minor, currency, updated_by, updated_at
		 FROM effective_prices WHERE service_type_id = ?`,
		serviceTypeID,
	).Scan(&price).Error
	if err != nil {
		return nil, err
	}
	if price.ServiceTypeID == 0 {
		return nil, nil
	}
	return &price, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]pricingdomain.EffectivePrice, error) {
	var items []pricingdomain.EffectivePrice
	err := db.WithContext(ctx).Raw(
		`SELECT service_type_id, price_minor, currency, updated_by, updated_at
		 FROM effective_prices ORDER BY service_type_id ASC`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, price *pricingdomain.EffectivePrice) error {
	result := db.WithContext(ctx).Exec(
		`UPDATE effective_prices
		 SET price_minor = ?, currency = ?, updated_by = ?, updated_at = ?
		 WHERE service_type_id = ?`,
		price.PriceMinor,
		price.Currency,
		price.UpdatedBy,
		price.UpdatedAt,
		price.ServiceTypeID,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO effective_prices (service_type_id, price_minor, currency, updated_by, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		price.ServiceTypeID,
		price.PriceMinor,
		price.Currency,
		price.UpdatedBy,
		price.UpdatedAt,
	).Error
}

func (r *repo) AppendChange(ctx context.Context, db *gorm.DB, change *pricingdomain.PriceChange) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO price_change_log (
			id, service_type_id, recommendation_id, old_price_minor, new_price_minor,
			changed_by, source, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		change.ID,
		change.ServiceTypeID,
		change.RecommendationID,
		change.OldPriceMinor,
		change.NewPriceMinor,
		change.ChangedBy,
		change.Source,
		change.CreatedAt,
	).Error
}

func (r *repo) ListChanges(ctx context.Context, db *gorm.DB, serviceTypeID snowflake.ID, limit int) ([]pricingdomain.PriceChange, error) {
	if limit <= 0 {
		limit = 50
	}
	var items []pricingdomain.PriceChange
	err := db.WithContext(ctx).Raw(
		`SELECT id, service_type_id, recommendation_id, old_price_minor, new_price_minor,
		        changed_by, source, created_at
		 FROM price_change_log
		 WHERE service_type_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		serviceTypeID,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
