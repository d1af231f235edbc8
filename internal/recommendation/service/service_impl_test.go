package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/nivala/pricing/internal/audit/domain"
	auditrepository "github.com/nivala/pricing/internal/audit/repository"
	auditservice "github.com/nivala/pricing/internal/audit/service"
	"github.com/nivala/pricing/internal/clock"
	pricingdomain "github.com/nivala/pricing/internal/pricing/domain"
	pricingrepository "github.com/nivala/pricing/internal/pricing/repository"
	pricingservice "github.com/nivala/pricing/internal/pricing/service"
	recdomain "github.com/nivala/pricing/internal/recommendation/domain"
	"github.com/nivala/pricing/internal/recommendation/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fixtureSeq makes each fixture DB unique so repeated runs in one test
// binary never share a cached in-memory database.
var fixtureSeq atomic.Int64

type fixture struct {
	svc   *Service
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), fixtureSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&recdomain.PriceRecommendation{},
		&pricingdomain.EffectivePrice{},
		&pricingdomain.PriceChange{},
		&auditdomain.AuditLog{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_price_recommendations_one_pending
		ON price_recommendations (service_type_id) WHERE status = 'pending'`)

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	pricingSvc := pricingservice.New(pricingservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: fake,
		Repo:  pricingrepository.Provide(),
	})
	auditSvc := auditservice.New(auditservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: fake,
		Repo:  auditrepository.Provide(),
	})
	svc := New(Params{
		DB:      db,
		Log:     log,
		GenID:   node,
		Clock:   fake,
		Repo:    repository.Provide(),
		Pricing: pricingSvc,
		Audit:   auditSvc,
	})
	return &fixture{svc: svc.(*Service), db: db, node: node, clock: fake}
}

func (f *fixture) seedPrice(t *testing.T, serviceTypeID snowflake.ID, priceMinor int64) {
	t.Helper()
	err := f.db.Create(&pricingdomain.EffectivePrice{
		ServiceTypeID: serviceTypeID,
		PriceMinor:    priceMinor,
		Currency:      "USD",
		UpdatedBy:     "seed",
		UpdatedAt:     f.clock.Now(),
	}).Error
	if err != nil {
		t.Fatalf("seed price: %v", err)
	}
}

func (f *fixture) newRecommendation(serviceTypeID snowflake.ID) *recdomain.PriceRecommendation {
	now := f.clock.Now()
	return &recdomain.PriceRecommendation{
		ServiceTypeID:      serviceTypeID,
		CurrentPriceMinor:  2900,
		ProposedPriceMinor: 3515,
		PercentDelta:       0.212,
		Confidence:         1.0,
		Reasoning:          "150 sessions over window",
		GeneratedAt:        now,
		ExpiresAt:          now.AddDate(0, 0, 14),
	}
}

func TestSubmit_AtMostOnePending(t *testing.T) {
	f := newFixture(t)
	serviceTypeID := f.node.Generate()

	id, err := f.svc.Submit(context.Background(), f.newRecommendation(serviceTypeID))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id == 0 {
		t.Fatal("want a non-zero id")
	}

	if _, err := f.svc.Submit(context.Background(), f.newRecommendation(serviceTypeID)); err != recdomain.ErrDuplicatePending {
		t.Fatalf("second submit: want ErrDuplicatePending, got %v", err)
	}

	// Another service type is unaffected.
	if _, err := f.svc.Submit(context.Background(), f.newRecommendation(f.node.Generate())); err != nil {
		t.Fatalf("submit for other service type: %v", err)
	}
}

func TestDecide_ApproveAppliesPriceAtomically(t *testing.T) {
	f := newFixture(t)
	serviceTypeID := f.node.Generate()
	f.seedPrice(t, serviceTypeID, 2900)

	id, err := f.svc.Submit(context.Background(), f.newRecommendation(serviceTypeID))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	res, err := f.svc.Decide(context.Background(), recdomain.DecideRequest{
		RecommendationID: id.String(),
		AdminID:          "admin-1",
		Approve:          true,
	})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if res.Recommendation.Status != recdomain.StatusApproved {
		t.Errorf("status = %s, want approved", res.Recommendation.Status)
	}
	if res.EffectivePrice == nil || res.EffectivePrice.PriceMinor != 3515 {
		t.Fatalf("effective price = %+v, want 3515", res.EffectivePrice)
	}

	var price pricingdomain.EffectivePrice
	if err := f.db.First(&price, "service_type_id = ?", serviceTypeID).Error; err != nil {
		t.Fatalf("load price: %v", err)
	}
	if price.PriceMinor != 3515 {
		t.Errorf("persisted price = %d, want 3515", price.PriceMinor)
	}
	if price.UpdatedBy != "admin-1" {
		t.Errorf("updated_by = %s, want admin-1", price.UpdatedBy)
	}

	var changes int64
	f.db.Model(&pricingdomain.PriceChange{}).Where("service_type_id = ?", serviceTypeID).Count(&changes)
	if changes != 1 {
		t.Errorf("price change rows = %d, want exactly 1", changes)
	}

	var audits int64
	f.db.Model(&auditdomain.AuditLog{}).Where("action = ?", "recommendation.approved").Count(&audits)
	if audits != 1 {
		t.Errorf("audit rows = %d, want exactly 1", audits)
	}
}

func TestDecide_RejectLeavesPriceAlone(t *testing.T) {
	f := newFixture(t)
	serviceTypeID := f.node.Generate()
	f.seedPrice(t, serviceTypeID, 2900)

	id, err := f.svc.Submit(context.Background(), f.newRecommendation(serviceTypeID))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	res, err := f.svc.Decide(context.Background(), recdomain.DecideRequest{
		RecommendationID: id.String(),
		AdminID:          "admin-2",
		Approve:          false,
	})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if res.Recommendation.Status != recdomain.StatusRejected {
		t.Errorf("status = %s, want rejected", res.Recommendation.Status)
	}
	if res.EffectivePrice != nil {
		t.Errorf("effective price = %+v, want nil on rejection", res.EffectivePrice)
	}

	var price pricingdomain.EffectivePrice
	if err := f.db.First(&price, "service_type_id = ?", serviceTypeID).Error; err != nil {
		t.Fatalf("load price: %v", err)
	}
	if price.PriceMinor != 2900 {
		t.Errorf("price = %d, want unchanged 2900", price.PriceMinor)
	}
}

func TestDecide_SecondDecisionConflicts(t *testing.T) {
	f := newFixture(t)
	serviceTypeID := f.node.Generate()
	f.seedPrice(t, serviceTypeID, 2900)

	id, err := f.svc.Submit(context.Background(), f.newRecommendation(serviceTypeID))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if _, err := f.svc.Decide(context.Background(), recdomain.DecideRequest{
		RecommendationID: id.String(), AdminID: "admin-1", Approve: true,
	}); err != nil {
		t.Fatalf("first decide: %v", err)
	}
	_, err = f.svc.Decide(context.Background(), recdomain.DecideRequest{
		RecommendationID: id.String(), AdminID: "admin-2", Approve: false,
	})
	if err != recdomain.ErrAlreadyDecided {
		t.Fatalf("second decide: want ErrAlreadyDecided, got %v", err)
	}

	// The losing call must not have touched the price.
	var changes int64
	f.db.Model(&pricingdomain.PriceChange{}).Where("service_type_id = ?", serviceTypeID).Count(&changes)
	if changes != 1 {
		t.Errorf("price change rows = %d, want exactly 1", changes)
	}
}

func TestDecide_GuardedUpdateSingleWinner(t *testing.T) {
	f := newFixture(t)
	serviceTypeID := f.node.Generate()

	rec := f.newRecommendation(serviceTypeID)
	id, err := f.svc.Submit(context.Background(), rec)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// The status guard in the update is what racing deciders serialize on.
	repo := repository.Provide()
	now := f.clock.Now()
	won, err := repo.MarkDecided(context.Background(), f.db, id, recdomain.StatusApproved, "admin-1", now)
	if err != nil || !won {
		t.Fatalf("first mark: won=%v err=%v", won, err)
	}
	won, err = repo.MarkDecided(context.Background(), f.db, id, recdomain.StatusRejected, "admin-2", now)
	if err != nil {
		t.Fatalf("second mark: %v", err)
	}
	if won {
		t.Fatal("second mark won, want exactly one winner")
	}
}

func TestDecide_ConcurrentDecidesSingleWinner(t *testing.T) {
	f := newFixture(t)
	serviceTypeID := f.node.Generate()
	f.seedPrice(t, serviceTypeID, 2900)

	id, err := f.svc.Submit(context.Background(), f.newRecommendation(serviceTypeID))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	requests := []recdomain.DecideRequest{
		{RecommendationID: id.String(), AdminID: "admin-1", Approve: true},
		{RecommendationID: id.String(), AdminID: "admin-2", Approve: false},
	}
	errs := make([]error, len(requests))

	var wg sync.WaitGroup
	for i, req := range requests {
		wg.Add(1)
		go func(i int, req recdomain.DecideRequest) {
			defer wg.Done()
			_, errs[i] = f.svc.Decide(context.Background(), req)
		}(i, req)
	}
	wg.Wait()

	winners := 0
	for i, err := range errs {
		switch err {
		case nil:
			winners++
		case recdomain.ErrAlreadyDecided:
		default:
			t.Fatalf("decide %d: unexpected error %v", i, err)
		}
	}
	if winners != 1 {
		t.Fatalf("winners = %d, want exactly 1 (errors %v)", winners, errs)
	}

	// The losing decider must not have touched the price, whichever order
	// the two landed in.
	var changes int64
	f.db.Model(&pricingdomain.PriceChange{}).Where("service_type_id = ?", serviceTypeID).Count(&changes)
	if changes > 1 {
		t.Errorf("price change rows = %d, want at most 1", changes)
	}

	var rec recdomain.PriceRecommendation
	if err := f.db.First(&rec, "id = ?", id).Error; err != nil {
		t.Fatalf("reload recommendation: %v", err)
	}
	if rec.Status == recdomain.StatusPending {
		t.Error("recommendation still pending after concurrent decides")
	}
}

func TestDecide_Errors(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Decide(context.Background(), recdomain.DecideRequest{
		RecommendationID: "not-a-snowflake", AdminID: "a", Approve: true,
	}); err != recdomain.ErrInvalidID {
		t.Errorf("bad id: want ErrInvalidID, got %v", err)
	}

	if _, err := f.svc.Decide(context.Background(), recdomain.DecideRequest{
		RecommendationID: f.node.Generate().String(), AdminID: "a", Approve: true,
	}); err != recdomain.ErrNotFound {
		t.Errorf("unknown id: want ErrNotFound, got %v", err)
	}
}

func TestDecide_ExpiredRecommendation(t *testing.T) {
	f := newFixture(t)
	serviceTypeID := f.node.Generate()
	f.seedPrice(t, serviceTypeID, 2900)

	id, err := f.svc.Submit(context.Background(), f.newRecommendation(serviceTypeID))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	f.clock.Advance(15 * 24 * time.Hour)

	_, err = f.svc.Decide(context.Background(), recdomain.DecideRequest{
		RecommendationID: id.String(), AdminID: "admin-1", Approve: true,
	})
	if err != recdomain.ErrAlreadyDecided {
		t.Fatalf("want ErrAlreadyDecided for expired, got %v", err)
	}

	rec, err := f.svc.Get(context.Background(), id.String())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Status != recdomain.StatusExpired {
		t.Errorf("status = %s, want expired", rec.Status)
	}
}

func TestExpireStale(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Submit(context.Background(), f.newRecommendation(f.node.Generate())); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := f.svc.Submit(context.Background(), f.newRecommendation(f.node.Generate())); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// Nothing is stale yet.
	n, err := f.svc.ExpireStale(context.Background())
	if err != nil {
		t.Fatalf("ExpireStale: %v", err)
	}
	if n != 0 {
		t.Fatalf("expired = %d, want 0", n)
	}

	f.clock.Advance(15 * 24 * time.Hour)

	n, err = f.svc.ExpireStale(context.Background())
	if err != nil {
		t.Fatalf("ExpireStale: %v", err)
	}
	if n != 2 {
		t.Fatalf("expired = %d, want 2", n)
	}

	// An expired slot frees the service type for a fresh submission.
	items, err := f.svc.List(context.Background(), "expired", 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("expired listed = %d, want 2", len(items))
	}
}

func TestList_StatusFilter(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Submit(context.Background(), f.newRecommendation(f.node.Generate())); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	items, err := f.svc.List(context.Background(), "pending", 10)
	if err != nil {
		t.Fatalf("List pending: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("pending = %d, want 1", len(items))
	}

	items, err = f.svc.List(context.Background(), "approved", 10)
	if err != nil {
		t.Fatalf("List approved: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("approved = %d, want 0", len(items))
	}

	if _, err := f.svc.List(context.Background(), "bogus", 10); err != recdomain.ErrInvalidStatus {
		t.Errorf("want ErrInvalidStatus, got %v", err)
	}
}
