package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/bwmarrin/snowflake"
	adminkeydomain "github.com/nivala/pricing/internal/adminkey/domain"
	"github.com/nivala/pricing/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  adminkeydomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  adminkeydomain.Repository
}

func New(p Params) adminkeydomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("adminkey.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Verify(ctx context.Context, rawKey string) (*adminkeydomain.AdminAPIKey, error) {
	rawKey = strings.TrimSpace(rawKey)
	if rawKey == "" {
		return nil, adminkeydomain.ErrUnauthorized
	}

	hash := adminkeydomain.HashKey(rawKey)
	key, err := s.repo.FindByHash(ctx, s.db, hash)
	if err != nil {
		return nil, err
	}
	if key == nil || !adminkeydomain.HashEqual(key.KeyHash, hash) || !key.IsActive {
		return nil, adminkeydomain.ErrUnauthorized
	}
	now := s.clock.Now()
	if key.ExpiresAt != nil && !key.ExpiresAt.After(now) {
		return nil, adminkeydomain.ErrUnauthorized
	}

	// Last-used is advisory; a failed touch must not fail the request.
	if err := s.repo.TouchLastUsed(ctx, s.db, key.ID, now); err != nil {
		s.log.Warn("touch last_used failed", zap.Error(err))
	}
	return key, nil
}

func (s *Service) Create(ctx context.Context, name string) (*adminkeydomain.AdminAPIKey, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, "", adminkeydomain.ErrInvalidName
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, "", err
	}
	raw := "pk_" + hex.EncodeToString(buf)

	key := &adminkeydomain.AdminAPIKey{
		ID:        s.genID.Generate(),
		Name:      name,
		KeyHash:   adminkeydomain.HashKey(raw),
		Scopes:    "admin",
		IsActive:  true,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, key); err != nil {
		return nil, "", err
	}

	s.log.Info("admin key issued", zap.String("name", name), zap.String("key_id", key.ID.String()))
	return key, raw, nil
}
