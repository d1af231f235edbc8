// Package scheduler drives the daily analysis cycle: expire stale
// recommendations, aggregate usage per active service type, run the
// recommendation engine and submit proposals for admin review. The manual
// admin trigger calls the same RunOnce as the ticker.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/snowflake"
	analyticsdomain "github.com/nivala/pricing/internal/analytics/domain"
	auditdomain "github.com/nivala/pricing/internal/audit/domain"
	"github.com/nivala/pricing/internal/clock"
	obsmetrics "github.com/nivala/pricing/internal/observability/metrics"
	offeringdomain "github.com/nivala/pricing/internal/offering/domain"
	pricingdomain "github.com/nivala/pricing/internal/pricing/domain"
	"github.com/nivala/pricing/internal/ratelimit"
	recdomain "github.com/nivala/pricing/internal/recommendation/domain"
	"github.com/nivala/pricing/internal/recommendation/engine"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const cycleLockKey = "pricing:analysis:cycle"

var (
	ErrInvalidConfig   = errors.New("scheduler: invalid configuration")
	ErrCycleInProgress = errors.New("scheduler: analysis cycle already running")
)

type Params struct {
	fx.In

	Log    *zap.Logger
	Clock  clock.Clock
	GenID  *snowflake.Node
	Config Config `optional:"true"`

	OfferingSvc  offeringdomain.Service
	AnalyticsSvc analyticsdomain.Service
	Engine       *engine.Engine
	PricingSvc   pricingdomain.Service
	RecSvc       recdomain.Service

	AuditSvc auditdomain.Service `optional:"true"`
	Locker   *ratelimit.Locker   `optional:"true"`
}

type Scheduler struct {
	log    *zap.Logger
	cfg    Config
	clock  clock.Clock
	genID  *snowflake.Node
	locker *ratelimit.Locker

	offeringSvc  offeringdomain.Service
	analyticsSvc analyticsdomain.Service
	engine       *engine.Engine
	pricingSvc   pricingdomain.Service
	recSvc       recdomain.Service
	auditSvc     auditdomain.Service

	running atomic.Bool
}

// CycleResult summarizes one analysis cycle for logs and for the manual
// trigger's HTTP response.
type CycleResult struct {
	ServiceTypes int   `json:"service_types"`
	Generated    int   `json:"generated"`
	Skipped      int   `json:"skipped"`
	Expired      int64 `json:"expired"`
	Failed       int   `json:"failed"`
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.GenID == nil ||
		p.OfferingSvc == nil || p.AnalyticsSvc == nil || p.Engine == nil ||
		p.PricingSvc == nil || p.RecSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:          p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:          p.Config.withDefaults(),
		clock:        p.Clock,
		genID:        p.GenID,
		locker:       p.Locker,
		offeringSvc:  p.OfferingSvc,
		analyticsSvc: p.AnalyticsSvc,
		engine:       p.Engine,
		pricingSvc:   p.PricingSvc,
		recSvc:       p.RecSvc,
		auditSvc:     p.AuditSvc,
	}, nil
}

// RunOnce executes one full analysis cycle. Overlapping calls are rejected
// with ErrCycleInProgress rather than queued; a missed tick is cheaper than
// two concurrent cycles double-submitting.
func (s *Scheduler) RunOnce(parent context.Context) (*CycleResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		obsmetrics.Scheduler().IncCycleSkip()
		s.log.Warn("analysis cycle skipped, previous cycle still running")
		return nil, ErrCycleInProgress
	}
	defer s.running.Store(false)

	// Cross-replica guard. Redis being down degrades to the in-process
	// guard instead of blocking the cycle.
	if s.locker != nil {
		token, ok, err := s.locker.TryLock(parent, cycleLockKey, s.cfg.LockTTL)
		if err != nil {
			s.log.Warn("cycle lock unavailable, proceeding with local guard only", zap.Error(err))
		} else if !ok {
			obsmetrics.Scheduler().IncCycleSkip()
			s.log.Warn("analysis cycle skipped, another replica holds the lock")
			return nil, ErrCycleInProgress
		} else {
			defer func() {
				if err := s.locker.Release(parent, cycleLockKey, token); err != nil {
					s.log.Warn("cycle lock release failed", zap.Error(err))
				}
			}()
		}
	}

	result := &CycleResult{}
	var err error

	err = errors.Join(err, s.runJob(parent, "expire_recommendations", func(ctx context.Context) error {
		expired, jobErr := s.recSvc.ExpireStale(ctx)
		result.Expired = expired
		return jobErr
	}))
	err = errors.Join(err, s.runJob(parent, "generate_recommendations", func(ctx context.Context) error {
		return s.generateJob(ctx, result)
	}))
	err = errors.Join(err, s.runJob(parent, "refresh_snapshots", func(ctx context.Context) error {
		return s.refreshSnapshotsJob(ctx)
	}))

	if s.auditSvc != nil {
		if auditErr := s.auditSvc.Record(parent, nil, auditdomain.Entry{
			ActorType:  auditdomain.ActorSystem,
			Action:     "analysis.run",
			TargetType: "analysis_cycle",
			Metadata: map[string]any{
				"service_types": result.ServiceTypes,
				"generated":     result.Generated,
				"skipped":       result.Skipped,
				"expired":       result.Expired,
				"failed":        result.Failed,
			},
		}); auditErr != nil {
			s.log.Warn("cycle audit record failed", zap.Error(auditErr))
		}
	}

	s.log.Info("analysis cycle finished",
		zap.Int("service_types", result.ServiceTypes),
		zap.Int("generated", result.Generated),
		zap.Int("skipped", result.Skipped),
		zap.Int64("expired", result.Expired),
		zap.Int("failed", result.Failed),
	)
	return result, err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, ErrCycleInProgress) {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, time.Since(start))
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		schedMetrics.IncJobTimeout(name)
		s.log.Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", s.cfg.JobTimeout),
			zap.Error(err),
		)
		return nil
	}

	schedMetrics.IncJobError(name, err)
	return fmt.Errorf("%s: %w", name, err)
}

// generateJob walks every active service type. One service type failing is
// logged and counted, never fatal for the rest of the cycle.
func (s *Scheduler) generateJob(ctx context.Context, result *CycleResult) error {
	serviceTypes, err := s.offeringSvc.List(ctx, true)
	if err != nil {
		return err
	}
	result.ServiceTypes = len(serviceTypes)

	var jobErr error
	for _, st := range serviceTypes {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		outcome, err := s.generateForServiceType(ctx, st)
		switch {
		case err != nil:
			result.Failed++
			jobErr = errors.Join(jobErr, err)
			obsmetrics.Scheduler().IncRecommendation("failed")
			s.log.Error("recommendation generation failed",
				zap.String("service_type_id", st.ID.String()),
				zap.String("code", st.Code),
				zap.Error(err),
			)
		case outcome == outcomeGenerated:
			result.Generated++
		default:
			result.Skipped++
		}
	}
	return jobErr
}

type generateOutcome int

const (
	outcomeGenerated generateOutcome = iota
	outcomeSkipped
)

func (s *Scheduler) generateForServiceType(ctx context.Context, st offeringdomain.ServiceType) (generateOutcome, error) {
	price, err := s.pricingSvc.Get(ctx, st.ID.String())
	if err != nil {
		if errors.Is(err, pricingdomain.ErrNotFound) {
			obsmetrics.Scheduler().IncRecommendation("no_price")
			s.log.Warn("service type has no effective price, skipping",
				zap.String("service_type_id", st.ID.String()),
				zap.String("code", st.Code),
			)
			return outcomeSkipped, nil
		}
		return outcomeSkipped, err
	}

	snapshot, err := s.analyticsSvc.ComputeSnapshot(ctx, st.ID, s.cfg.WindowDays)
	if err != nil {
		if errors.Is(err, analyticsdomain.ErrNoData) {
			obsmetrics.Scheduler().IncRecommendation("no_data")
			return outcomeSkipped, nil
		}
		return outcomeSkipped, err
	}

	baseline, err := s.analyticsSvc.DemandBaseline(ctx, st.ID, s.cfg.WindowDays)
	if err != nil {
		return outcomeSkipped, err
	}

	proposal, err := s.engine.Generate(engine.Input{
		Snapshot:          snapshot,
		CurrentPriceMinor: price.PriceMinor,
		DemandBaseline:    baseline,
	})
	if err != nil {
		return outcomeSkipped, err
	}
	if proposal == nil {
		obsmetrics.Scheduler().IncRecommendation("suppressed")
		return outcomeSkipped, nil
	}

	now := s.clock.Now()
	_, err = s.recSvc.Submit(ctx, &recdomain.PriceRecommendation{
		ServiceTypeID:      st.ID,
		CurrentPriceMinor:  price.PriceMinor,
		ProposedPriceMinor: proposal.ProposedPriceMinor,
		PercentDelta:       proposal.PercentDelta,
		Confidence:         proposal.Confidence,
		Reasoning:          proposal.Reasoning,
		GeneratedAt:        now,
		ExpiresAt:          now.AddDate(0, 0, s.cfg.RetentionDays),
	})
	if err != nil {
		if errors.Is(err, recdomain.ErrDuplicatePending) {
			obsmetrics.Scheduler().IncRecommendation("duplicate_pending")
			s.log.Debug("pending recommendation already exists, skipping",
				zap.String("service_type_id", st.ID.String()),
			)
			return outcomeSkipped, nil
		}
		return outcomeSkipped, err
	}
	return outcomeGenerated, nil
}

func (s *Scheduler) refreshSnapshotsJob(ctx context.Context) error {
	serviceTypes, err := s.offeringSvc.List(ctx, true)
	if err != nil {
		return err
	}

	var jobErr error
	for _, st := range serviceTypes {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.analyticsSvc.RefreshSnapshot(ctx, st.ID, s.cfg.WindowDays); err != nil {
			jobErr = errors.Join(jobErr, err)
			s.log.Error("snapshot refresh failed",
				zap.String("service_type_id", st.ID.String()),
				zap.Error(err),
			)
		}
	}
	return jobErr
}
