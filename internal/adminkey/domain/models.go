// Package domain defines admin API keys. Keys are random secrets handed to
// operators; only a sha256 digest is stored.
package domain

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type AdminAPIKey struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	Name       string       `json:"name" gorm:"type:text;not null"`
	KeyHash    string       `json:"-" gorm:"type:text;not null;uniqueIndex"`
	Scopes     string       `json:"scopes" gorm:"type:text;not null;default:admin"`
	IsActive   bool         `json:"is_active" gorm:"not null;default:true"`
	ExpiresAt  *time.Time   `json:"expires_at,omitempty"`
	LastUsedAt *time.Time   `json:"last_used_at,omitempty"`
	CreatedAt  time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (AdminAPIKey) TableName() string { return "admin_api_keys" }

// HashKey returns the hex sha256 digest stored and compared for a raw key.
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// HashEqual compares two digests in constant time.
func HashEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, key *AdminAPIKey) error
	FindByHash(ctx context.Context, db *gorm.DB, keyHash string) (*AdminAPIKey, error)
	TouchLastUsed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
}

type Service interface {
	// Verify resolves a raw bearer key to its active record. Unknown,
	// inactive and expired keys all return ErrUnauthorized.
	Verify(ctx context.Context, rawKey string) (*AdminAPIKey, error)

	// Create issues a named key and returns the record plus the raw
	// secret, which is never persisted or shown again.
	Create(ctx context.Context, name string) (*AdminAPIKey, string, error)
}

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidName  = errors.New("invalid_key_name")
)
