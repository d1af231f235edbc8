package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/nivala/pricing/internal/audit/domain"
	"github.com/nivala/pricing/internal/clock"
	pricingdomain "github.com/nivala/pricing/internal/pricing/domain"
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
	Repo  pricingdomain.Repository

	Audit auditdomain.Service `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  pricingdomain.Repository
	audit auditdomain.Service
}

func New(p Params) pricingdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("pricing.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		audit: p.Audit,
	}
}

func (s *Service) Get(ctx context.Context, serviceTypeID string) (*pricingdomain.EffectivePrice, error) {
	id, err := parseID(serviceTypeID)
	if err != nil {
		return nil, err
	}

	price, err := s.repo.Find(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if price == nil {
		return nil, pricingdomain.ErrNotFound
	}
	return price, nil
}

func (s *Service) List(ctx context.Context) ([]pricingdomain.EffectivePrice, error) {
	return s.repo.List(ctx, s.db)
}

func (s *Service) History(ctx context.Context, serviceTypeID string, limit int) ([]pricingdomain.PriceChange, error) {
	id, err := parseID(serviceTypeID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListChanges(ctx, s.db, id, limit)
}

func (s *Service) Update(ctx context.Context, req pricingdomain.UpdateRequest) (*pricingdomain.EffectivePrice, error) {
	id, err := parseID(req.ServiceTypeID)
	if err != nil {
		return nil, err
	}
	if req.PriceMinor <= 0 {
		return nil, pricingdomain.ErrInvalidPrice
	}

	var updated *pricingdomain.EffectivePrice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		updated, txErr = s.ApplyChange(ctx, tx, pricingdomain.ApplyRequest{
			ServiceTypeID: id,
			NewPriceMinor: req.PriceMinor,
			ChangedBy:     req.ChangedBy,
			Source:        pricingdomain.SourceAdminEdit,
		})
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) ApplyChange(ctx context.Context, tx *gorm.DB, req pricingdomain.ApplyRequest) (*pricingdomain.EffectivePrice, error) {
	if req.NewPriceMinor <= 0 {
		return nil, pricingdomain.ErrInvalidPrice
	}

	current, err := s.repo.Find(ctx, tx, req.ServiceTypeID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, pricingdomain.ErrNotFound
	}

	now := s.clock.Now()
	changedBy := strings.TrimSpace(req.ChangedBy)
	if changedBy == "" {
		changedBy = "system"
	}

	updated := &pricingdomain.EffectivePrice{
		ServiceTypeID: req.ServiceTypeID,
		PriceMinor:    req.NewPriceMinor,
		Currency:      current.Currency,
		UpdatedBy:     changedBy,
		UpdatedAt:     now,
	}
	if err := s.repo.Upsert(ctx, tx, updated); err != nil {
		return nil, err
	}

	change := &pricingdomain.PriceChange{
		ID:               s.genID.Generate(),
		ServiceTypeID:    req.ServiceTypeID,
		RecommendationID: req.RecommendationID,
		OldPriceMinor:    current.PriceMinor,
		NewPriceMinor:    req.NewPriceMinor,
		ChangedBy:        changedBy,
		Source:           req.Source,
		CreatedAt:        now,
	}
	if err := s.repo.AppendChange(ctx, tx, change); err != nil {
		return nil, err
	}

	if s.audit != nil {
		actorType := auditdomain.ActorSystem
		if req.Source == pricingdomain.SourceAdminEdit {
			actorType = auditdomain.ActorAdmin
		}
		if err := s.audit.Record(ctx, tx, auditdomain.Entry{
			ActorType:  actorType,
			ActorID:    changedBy,
			Action:     "price.changed",
			TargetType: "service_type",
			TargetID:   req.ServiceTypeID.String(),
			Metadata: map[string]any{
				"old_price_minor": current.PriceMinor,
				"new_price_minor": req.NewPriceMinor,
				"source":          string(req.Source),
			},
		}); err != nil {
			return nil, err
		}
	}

	return updated, nil
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil {
		return 0, pricingdomain.ErrInvalidID
	}
	return id, nil
}
