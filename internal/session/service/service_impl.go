package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/nivala/pricing/internal/clock"
	offeringdomain "github.com/nivala/pricing/internal/offering/domain"
	sessiondomain "github.com/nivala/pricing/internal/session/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         sessiondomain.Repository
	OfferingRepo offeringdomain.Repository
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         sessiondomain.Repository
	offeringRepo offeringdomain.Repository
}

func New(p Params) sessiondomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("session.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		offeringRepo: p.OfferingRepo,
	}
}

func (s *Service) Record(ctx context.Context, req sessiondomain.RecordRequest) (*sessiondomain.SessionRecord, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	serviceTypeID, err := snowflake.ParseString(strings.TrimSpace(req.ServiceTypeID))
	if err != nil {
		return nil, sessiondomain.ErrInvalidServiceType
	}
	serviceType, err := s.offeringRepo.FindByID(ctx, s.db, serviceTypeID)
	if err != nil {
		return nil, err
	}
	if serviceType == nil {
		return nil, sessiondomain.ErrInvalidServiceType
	}

	idempotencyKey := strings.TrimSpace(req.IdempotencyKey)
	if idempotencyKey != "" {
		existing, err := s.repo.FindByIdempotencyKey(ctx, s.db, idempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	record := &sessiondomain.SessionRecord{
		ID:            s.genID.Generate(),
		ServiceTypeID: serviceTypeID,
		UserRef:       strings.TrimSpace(req.UserRef),
		StartedAt:     req.StartedAt.UTC(),
		EndedAt:       req.EndedAt.UTC(),
		Completed:     req.Completed,
		Satisfaction:  req.Satisfaction,
		RevenueMinor:  req.RevenueMinor,
		CreditCost:    req.CreditCost,
		CreatedAt:     s.clock.Now(),
	}
	if idempotencyKey != "" {
		record.IdempotencyKey = &idempotencyKey
	}

	inserted, err := s.repo.Insert(ctx, s.db, record)
	if err != nil {
		return nil, err
	}
	if !inserted && idempotencyKey != "" {
		// Lost a concurrent race on the idempotency key; the winner's row
		// is the canonical one.
		existing, err := s.repo.FindByIdempotencyKey(ctx, s.db, idempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	return record, nil
}

func validate(req sessiondomain.RecordRequest) error {
	if strings.TrimSpace(req.ServiceTypeID) == "" {
		return sessiondomain.ErrInvalidServiceType
	}
	if strings.TrimSpace(req.UserRef) == "" {
		return sessiondomain.ErrInvalidUserRef
	}
	if req.StartedAt.IsZero() || req.EndedAt.IsZero() || req.EndedAt.Before(req.StartedAt) {
		return sessiondomain.ErrInvalidTimeRange
	}
	if req.Satisfaction != nil && (*req.Satisfaction < 0 || *req.Satisfaction > 5) {
		return sessiondomain.ErrInvalidSatisfaction
	}
	if req.RevenueMinor < 0 {
		return sessiondomain.ErrInvalidRevenue
	}
	return nil
}
