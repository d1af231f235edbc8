package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Find(ctx context.Context, db *gorm.DB, serviceTypeID snowflake.ID) (*EffectivePrice, error)
	List(ctx context.Context, db *gorm.DB) ([]EffectivePrice, error)
	Upsert(ctx context.Context, db *gorm.DB, price *EffectivePrice) error
	AppendChange(ctx context.Context, db *gorm.DB, change *PriceChange) error
	ListChanges(ctx context.Context, db *gorm.DB, serviceTypeID snowflake.ID, limit int) ([]PriceChange, error)
}
