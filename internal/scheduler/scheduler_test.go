package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	analyticsdomain "github.com/nivala/pricing/internal/analytics/domain"
	"github.com/nivala/pricing/internal/clock"
	offeringdomain "github.com/nivala/pricing/internal/offering/domain"
	pricingdomain "github.com/nivala/pricing/internal/pricing/domain"
	recdomain "github.com/nivala/pricing/internal/recommendation/domain"
	"github.com/nivala/pricing/internal/recommendation/engine"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubOffering struct {
	types   []offeringdomain.ServiceType
	listErr error
	entered chan struct{}
	release chan struct{}
}

func (s *stubOffering) Create(ctx context.Context, req offeringdomain.CreateRequest) (*offeringdomain.ServiceType, error) {
	return nil, errors.New("not implemented")
}

func (s *stubOffering) Get(ctx context.Context, id string) (*offeringdomain.ServiceType, error) {
	return nil, offeringdomain.ErrNotFound
}

func (s *stubOffering) List(ctx context.Context, activeOnly bool) ([]offeringdomain.ServiceType, error) {
	if s.entered != nil {
		s.entered <- struct{}{}
		<-s.release
	}
	return s.types, s.listErr
}

type stubAnalytics struct {
	snapshots map[snowflake.ID]*analyticsdomain.Snapshot
	errs      map[snowflake.ID]error
	baseline  float64
	refreshed int
}

func (s *stubAnalytics) ComputeSnapshot(ctx context.Context, serviceTypeID snowflake.ID, windowDays int) (*analyticsdomain.Snapshot, error) {
	if err, ok := s.errs[serviceTypeID]; ok {
		return nil, err
	}
	snap, ok := s.snapshots[serviceTypeID]
	if !ok {
		return nil, analyticsdomain.ErrNoData
	}
	return snap, nil
}

func (s *stubAnalytics) DemandBaseline(ctx context.Context, serviceTypeID snowflake.ID, windowDays int) (float64, error) {
	return s.baseline, nil
}

func (s *stubAnalytics) RefreshSnapshot(ctx context.Context, serviceTypeID snowflake.ID, windowDays int) error {
	s.refreshed++
	return nil
}

func (s *stubAnalytics) ListSnapshots(ctx context.Context) ([]analyticsdomain.Snapshot, error) {
	return nil, nil
}

type stubPricing struct {
	prices map[snowflake.ID]int64
}

func (s *stubPricing) Get(ctx context.Context, serviceTypeID string) (*pricingdomain.EffectivePrice, error) {
	id, err := snowflake.ParseString(serviceTypeID)
	if err != nil {
		return nil, pricingdomain.ErrInvalidID
	}
	minor, ok := s.prices[id]
	if !ok {
		return nil, pricingdomain.ErrNotFound
	}
	return &pricingdomain.EffectivePrice{ServiceTypeID: id, PriceMinor: minor, Currency: "USD"}, nil
}

func (s *stubPricing) List(ctx context.Context) ([]pricingdomain.EffectivePrice, error) {
	return nil, nil
}

func (s *stubPricing) History(ctx context.Context, serviceTypeID string, limit int) ([]pricingdomain.PriceChange, error) {
	return nil, nil
}

func (s *stubPricing) Update(ctx context.Context, req pricingdomain.UpdateRequest) (*pricingdomain.EffectivePrice, error) {
	return nil, errors.New("not implemented")
}

func (s *stubPricing) ApplyChange(ctx context.Context, tx *gorm.DB, change pricingdomain.ApplyRequest) (*pricingdomain.EffectivePrice, error) {
	return nil, errors.New("not implemented")
}

type stubRecommendations struct {
	submitted []recdomain.PriceRecommendation
	submitErr error
	expired   int64
}

func (s *stubRecommendations) Submit(ctx context.Context, rec *recdomain.PriceRecommendation) (snowflake.ID, error) {
	if s.submitErr != nil {
		return 0, s.submitErr
	}
	s.submitted = append(s.submitted, *rec)
	return snowflake.ID(int64(len(s.submitted))), nil
}

func (s *stubRecommendations) Decide(ctx context.Context, req recdomain.DecideRequest) (*recdomain.DecideResult, error) {
	return nil, errors.New("not implemented")
}

func (s *stubRecommendations) Get(ctx context.Context, id string) (*recdomain.PriceRecommendation, error) {
	return nil, recdomain.ErrNotFound
}

func (s *stubRecommendations) List(ctx context.Context, status string, limit int) ([]recdomain.PriceRecommendation, error) {
	return nil, nil
}

func (s *stubRecommendations) ExpireStale(ctx context.Context) (int64, error) {
	return s.expired, nil
}

func floatPtr(v float64) *float64 { return &v }

func healthySnapshot(serviceTypeID snowflake.ID, sessions int) *analyticsdomain.Snapshot {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return &analyticsdomain.Snapshot{
		ServiceTypeID:    serviceTypeID,
		WindowStart:      now.AddDate(0, 0, -90),
		WindowEnd:        now,
		SessionCount:     sessions,
		CompletedCount:   int(float64(sessions) * 0.92),
		CompletionRate:   floatPtr(0.92),
		MeanSatisfaction: floatPtr(4.6),
		GeneratedAt:      now,
	}
}

type fixture struct {
	sched     *Scheduler
	offering  *stubOffering
	analytics *stubAnalytics
	pricing   *stubPricing
	recs      *stubRecommendations
	node      *snowflake.Node
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}

	offering := &stubOffering{}
	analytics := &stubAnalytics{
		snapshots: map[snowflake.ID]*analyticsdomain.Snapshot{},
		errs:      map[snowflake.ID]error{},
	}
	pricing := &stubPricing{prices: map[snowflake.ID]int64{}}
	recs := &stubRecommendations{}

	sched, err := New(Params{
		Log:          zap.NewNop(),
		Clock:        clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
		GenID:        node,
		OfferingSvc:  offering,
		AnalyticsSvc: analytics,
		Engine:       engine.New(engine.DefaultWeights()),
		PricingSvc:   pricing,
		RecSvc:       recs,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &fixture{sched: sched, offering: offering, analytics: analytics, pricing: pricing, recs: recs, node: node}
}

func (f *fixture) addServiceType(sessions int, priceMinor int64) snowflake.ID {
	id := f.node.Generate()
	f.offering.types = append(f.offering.types, offeringdomain.ServiceType{ID: id, Code: id.String(), Active: true})
	if priceMinor > 0 {
		f.pricing.prices[id] = priceMinor
	}
	if sessions > 0 {
		f.analytics.snapshots[id] = healthySnapshot(id, sessions)
	}
	return id
}

func TestRunOnce_GeneratesRecommendations(t *testing.T) {
	f := newFixture(t)
	f.addServiceType(150, 2900)
	f.addServiceType(150, 4900)

	res, err := f.sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if res.ServiceTypes != 2 {
		t.Errorf("service_types = %d, want 2", res.ServiceTypes)
	}
	if res.Generated != 2 {
		t.Errorf("generated = %d, want 2", res.Generated)
	}
	if len(f.recs.submitted) != 2 {
		t.Fatalf("submitted = %d, want 2", len(f.recs.submitted))
	}
	for _, rec := range f.recs.submitted {
		if rec.PercentDelta <= 0 {
			t.Errorf("percent_delta = %v, want positive for healthy metrics", rec.PercentDelta)
		}
		if rec.ExpiresAt.Sub(rec.GeneratedAt) != 14*24*time.Hour {
			t.Errorf("expiry window = %v, want 14 days", rec.ExpiresAt.Sub(rec.GeneratedAt))
		}
	}
	if f.analytics.refreshed != 2 {
		t.Errorf("snapshots refreshed = %d, want 2", f.analytics.refreshed)
	}
}

func TestRunOnce_SkipsThinAndUnpriced(t *testing.T) {
	f := newFixture(t)
	f.addServiceType(150, 2900) // generates
	f.addServiceType(0, 2900)   // no data
	f.addServiceType(8, 2900)   // below confidence floor
	f.addServiceType(150, 0)    // no effective price

	res, err := f.sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if res.Generated != 1 {
		t.Errorf("generated = %d, want 1", res.Generated)
	}
	if res.Skipped != 3 {
		t.Errorf("skipped = %d, want 3", res.Skipped)
	}
	if res.Failed != 0 {
		t.Errorf("failed = %d, want 0", res.Failed)
	}
}

func TestRunOnce_PartialFailureContinues(t *testing.T) {
	f := newFixture(t)
	broken := f.addServiceType(150, 2900)
	f.addServiceType(150, 4900)
	f.analytics.errs[broken] = errors.New("connection reset")

	res, err := f.sched.RunOnce(context.Background())
	if err == nil {
		t.Fatal("want the per-type error surfaced from the cycle")
	}
	if res.Failed != 1 {
		t.Errorf("failed = %d, want 1", res.Failed)
	}
	if res.Generated != 1 {
		t.Errorf("generated = %d, want 1 despite the broken type", res.Generated)
	}
}

func TestRunOnce_DuplicatePendingIsSkip(t *testing.T) {
	f := newFixture(t)
	f.addServiceType(150, 2900)
	f.recs.submitErr = recdomain.ErrDuplicatePending

	res, err := f.sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if res.Generated != 0 || res.Skipped != 1 {
		t.Errorf("generated=%d skipped=%d, want 0/1", res.Generated, res.Skipped)
	}
}

func TestRunOnce_OverlapRejected(t *testing.T) {
	f := newFixture(t)
	f.offering.entered = make(chan struct{}, 2)
	f.offering.release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := f.sched.RunOnce(context.Background())
		done <- err
	}()

	// Wait for the first cycle to be inside its job, then tick again.
	<-f.offering.entered

	if _, err := f.sched.RunOnce(context.Background()); err != ErrCycleInProgress {
		t.Errorf("overlapping run: want ErrCycleInProgress, got %v", err)
	}

	close(f.offering.release)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}

	// Drain the second List entry signal from the snapshot refresh job.
	select {
	case <-f.offering.entered:
	default:
	}

	// With the first cycle finished, a new run proceeds.
	if _, err := f.sched.RunOnce(context.Background()); err != nil {
		t.Fatalf("run after release: %v", err)
	}
}
