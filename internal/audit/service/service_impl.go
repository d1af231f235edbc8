package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/nivala/pricing/internal/audit/domain"
	"github.com/nivala/pricing/internal/clock"
	"github.com/nivala/pricing/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  auditdomain.Repository
}

func New(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, tx *gorm.DB, entry auditdomain.Entry) error {
	if strings.TrimSpace(entry.Action) == "" || strings.TrimSpace(entry.TargetType) == "" {
		return auditdomain.ErrInvalidEntry
	}
	if entry.ActorType == "" {
		entry.ActorType = auditdomain.ActorSystem
	}
	if tx == nil {
		tx = s.db
	}

	row := &auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		ActorType:  entry.ActorType,
		Action:     entry.Action,
		TargetType: entry.TargetType,
		CreatedAt:  s.clock.Now(),
	}
	if v := strings.TrimSpace(entry.ActorID); v != "" {
		row.ActorID = &v
	}
	if v := strings.TrimSpace(entry.TargetID); v != "" {
		row.TargetID = &v
	}
	if len(entry.Metadata) > 0 {
		b, err := json.Marshal(entry.Metadata)
		if err != nil {
			return err
		}
		row.Metadata = datatypes.JSON(b)
	}

	return s.repo.Insert(ctx, tx, row)
}

func (s *Service) List(ctx context.Context, p pagination.Pagination) ([]auditdomain.AuditLog, *pagination.PageInfo, error) {
	return s.repo.List(ctx, s.db, p)
}
