package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/nivala/pricing/internal/clock"
	offeringdomain "github.com/nivala/pricing/internal/offering/domain"
	"github.com/nivala/pricing/pkg/db"
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
	Repo  offeringdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  offeringdomain.Repository
}

func New(p Params) offeringdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("offering.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req offeringdomain.CreateRequest) (*offeringdomain.ServiceType, error) {
	code := strings.ToLower(strings.TrimSpace(req.Code))
	if code == "" {
		return nil, offeringdomain.ErrInvalidCode
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, offeringdomain.ErrInvalidName
	}

	now := s.clock.Now()
	entity := &offeringdomain.ServiceType{
		ID:        s.genID.Generate(),
		Code:      code,
		Name:      name,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, entity); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, offeringdomain.ErrDuplicateCode
		}
		return nil, err
	}
	return entity, nil
}

func (s *Service) Get(ctx context.Context, id string) (*offeringdomain.ServiceType, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, offeringdomain.ErrInvalidID
	}

	entity, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, offeringdomain.ErrNotFound
	}
	return entity, nil
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]offeringdomain.ServiceType, error) {
	return s.repo.List(ctx, s.db, activeOnly)
}
