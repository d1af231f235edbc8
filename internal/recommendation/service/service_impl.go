package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/nivala/pricing/internal/audit/domain"
	"github.com/nivala/pricing/internal/clock"
	"github.com/nivala/pricing/internal/observability/metrics"
	pricingdomain "github.com/nivala/pricing/internal/pricing/domain"
	recdomain "github.com/nivala/pricing/internal/recommendation/domain"
	"github.com/nivala/pricing/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    recdomain.Repository
	Pricing pricingdomain.Service
	Audit   auditdomain.Service
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    recdomain.Repository
	pricing pricingdomain.Service
	audit   auditdomain.Service
}

func New(p Params) recdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("recommendation.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		pricing: p.Pricing,
		audit:   p.Audit,
	}
}

func (s *Service) Submit(ctx context.Context, rec *recdomain.PriceRecommendation) (snowflake.ID, error) {
	if rec == nil || rec.ServiceTypeID == 0 {
		return 0, recdomain.ErrInvalidID
	}

	existing, err := s.repo.FindPendingByServiceType(ctx, s.db, rec.ServiceTypeID)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return 0, recdomain.ErrDuplicatePending
	}

	if rec.ID == 0 {
		rec.ID = s.genID.Generate()
	}
	rec.Status = recdomain.StatusPending
	now := s.clock.Now()
	if rec.GeneratedAt.IsZero() {
		rec.GeneratedAt = now
	}
	rec.CreatedAt = now
	rec.UpdatedAt = now

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, rec); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			ActorType:  auditdomain.ActorSystem,
			Action:     "recommendation.submitted",
			TargetType: "price_recommendation",
			TargetID:   rec.ID.String(),
			Metadata: map[string]any{
				"service_type_id": rec.ServiceTypeID.String(),
				"percent_delta":   rec.PercentDelta,
				"confidence":      rec.Confidence,
			},
		})
	})
	if err != nil {
		// The partial unique index on (service_type_id) WHERE pending
		// backstops the pre-check under race.
		if db.IsDuplicateKeyErr(err) {
			return 0, recdomain.ErrDuplicatePending
		}
		return 0, err
	}

	metrics.Scheduler().IncRecommendation("submitted")
	s.log.Info("recommendation submitted",
		zap.String("recommendation_id", rec.ID.String()),
		zap.String("service_type_id", rec.ServiceTypeID.String()),
		zap.Float64("percent_delta", rec.PercentDelta),
		zap.Float64("confidence", rec.Confidence),
	)
	return rec.ID, nil
}

func (s *Service) Decide(ctx context.Context, req recdomain.DecideRequest) (*recdomain.DecideResult, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(req.RecommendationID))
	if err != nil {
		return nil, recdomain.ErrInvalidID
	}

	var result recdomain.DecideResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if rec == nil {
			return recdomain.ErrNotFound
		}
		if rec.Status != recdomain.StatusPending {
			return recdomain.ErrAlreadyDecided
		}

		now := s.clock.Now()

		// Pending past expiry is swept lazily here as well, so a stale
		// recommendation can never be decided between sweeps.
		if !rec.ExpiresAt.After(now) {
			if _, err := s.repo.MarkDecided(ctx, tx, id, recdomain.StatusExpired, "", now); err != nil {
				return err
			}
			return recdomain.ErrAlreadyDecided
		}

		status := recdomain.StatusRejected
		if req.Approve {
			status = recdomain.StatusApproved
		}

		flipped, err := s.repo.MarkDecided(ctx, tx, id, status, req.AdminID, now)
		if err != nil {
			return err
		}
		if !flipped {
			return recdomain.ErrAlreadyDecided
		}

		rec.Status = status
		rec.DecidedBy = &req.AdminID
		rec.DecidedAt = &now
		result.Recommendation = rec

		action := "recommendation.rejected"
		meta := map[string]any{
			"percent_delta": rec.PercentDelta,
			"confidence":    rec.Confidence,
		}

		if req.Approve {
			action = "recommendation.approved"
			price, err := s.pricing.ApplyChange(ctx, tx, pricingdomain.ApplyRequest{
				ServiceTypeID:    rec.ServiceTypeID,
				NewPriceMinor:    rec.ProposedPriceMinor,
				ChangedBy:        req.AdminID,
				Source:           pricingdomain.SourceRecommendation,
				RecommendationID: &rec.ID,
			})
			if err != nil {
				return err
			}
			result.EffectivePrice = price
			meta["old_price_minor"] = rec.CurrentPriceMinor
			meta["new_price_minor"] = rec.ProposedPriceMinor
		}

		return s.audit.Record(ctx, tx, auditdomain.Entry{
			ActorType:  auditdomain.ActorAdmin,
			ActorID:    req.AdminID,
			Action:     action,
			TargetType: "price_recommendation",
			TargetID:   rec.ID.String(),
			Metadata:   meta,
		})
	})
	if err != nil {
		return nil, err
	}

	outcome := "rejected"
	if req.Approve {
		outcome = "approved"
	}
	metrics.Scheduler().IncDecision(outcome)
	s.log.Info("recommendation decided",
		zap.String("recommendation_id", id.String()),
		zap.String("status", string(result.Recommendation.Status)),
		zap.String("decided_by", req.AdminID),
	)
	return &result, nil
}

func (s *Service) Get(ctx context.Context, rawID string) (*recdomain.PriceRecommendation, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(rawID))
	if err != nil {
		return nil, recdomain.ErrInvalidID
	}
	rec, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, recdomain.ErrNotFound
	}
	return rec, nil
}

func (s *Service) List(ctx context.Context, status string, limit int) ([]recdomain.PriceRecommendation, error) {
	var filter recdomain.Status
	switch strings.TrimSpace(status) {
	case "":
		filter = ""
	case string(recdomain.StatusPending):
		filter = recdomain.StatusPending
	case string(recdomain.StatusApproved):
		filter = recdomain.StatusApproved
	case string(recdomain.StatusRejected):
		filter = recdomain.StatusRejected
	case string(recdomain.StatusExpired):
		filter = recdomain.StatusExpired
	default:
		return nil, recdomain.ErrInvalidStatus
	}
	return s.repo.List(ctx, s.db, filter, limit)
}

func (s *Service) ExpireStale(ctx context.Context) (int64, error) {
	expired, err := s.repo.ExpirePending(ctx, s.db, s.clock.Now())
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		if err := s.audit.Record(ctx, nil, auditdomain.Entry{
			ActorType:  auditdomain.ActorSystem,
			Action:     "recommendation.expired",
			TargetType: "price_recommendation",
			Metadata:   map[string]any{"count": expired},
		}); err != nil {
			s.log.Warn("expiry audit record failed", zap.Error(err))
		}
		s.log.Info("recommendations expired", zap.Int64("count", expired))
	}
	return expired, nil
}
