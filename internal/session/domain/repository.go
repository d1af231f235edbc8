package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// Insert writes the record. Returns false without error when an
	// idempotency-key conflict means the record already exists.
	Insert(ctx context.Context, db *gorm.DB, record *SessionRecord) (bool, error)
	FindByIdempotencyKey(ctx context.Context, db *gorm.DB, key string) (*SessionRecord, error)
}
