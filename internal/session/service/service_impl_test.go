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
	"github.com/nivala/pricing/internal/clock"
	offeringdomain "github.com/nivala/pricing/internal/offering/domain"
	offeringrepository "github.com/nivala/pricing/internal/offering/repository"
	sessiondomain "github.com/nivala/pricing/internal/session/domain"
	"github.com/nivala/pricing/internal/session/repository"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fixtureSeq makes each fixture DB unique so repeated runs in one test
// binary never share a cached in-memory database.
var fixtureSeq atomic.Int64

func newTestService(t *testing.T, now time.Time) (sessiondomain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), fixtureSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)

	err = db.AutoMigrate(&sessiondomain.SessionRecord{}, &offeringdomain.ServiceType{})
	assert.NoError(t, err)
	err = db.Exec(`CREATE UNIQUE INDEX idx_session_records_idempotency_key
		ON session_records (idempotency_key) WHERE idempotency_key IS NOT NULL`).Error
	assert.NoError(t, err)

	node, err := snowflake.NewNode(1)
	assert.NoError(t, err)

	svc := New(Params{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        clock.NewFakeClock(now),
		Repo:         repository.Provide(),
		OfferingRepo: offeringrepository.Provide(),
	})
	return svc, db, node
}

func seedServiceType(t *testing.T, db *gorm.DB, node *snowflake.Node) snowflake.ID {
	t.Helper()
	id := node.Generate()
	err := db.Create(&offeringdomain.ServiceType{
		ID:     id,
		Code:   fmt.Sprintf("guidance_session_%s", id),
		Name:   "Guidance Session",
		Active: true,
	}).Error
	assert.NoError(t, err)
	return id
}

func validRequest(serviceTypeID snowflake.ID, now time.Time) sessiondomain.RecordRequest {
	rating := int16(4)
	return sessiondomain.RecordRequest{
		ServiceTypeID: serviceTypeID.String(),
		UserRef:       "user-1",
		StartedAt:     now.Add(-30 * time.Minute),
		EndedAt:       now,
		Completed:     true,
		Satisfaction:  &rating,
		RevenueMinor:  2900,
		CreditCost:    10,
	}
}

func TestRecordPersistsSession(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, db, node := newTestService(t, now)
	ctx := context.Background()

	serviceTypeID := seedServiceType(t, db, node)

	rec, err := svc.Record(ctx, validRequest(serviceTypeID, now))
	assert.NoError(t, err)
	assert.NotZero(t, rec.ID)
	assert.Equal(t, serviceTypeID, rec.ServiceTypeID)
	assert.Equal(t, "user-1", rec.UserRef)
	assert.Equal(t, int64(2900), rec.RevenueMinor)

	var count int64
	assert.NoError(t, db.Model(&sessiondomain.SessionRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRecordValidation(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, db, node := newTestService(t, now)
	ctx := context.Background()

	serviceTypeID := seedServiceType(t, db, node)

	cases := []struct {
		name    string
		mutate  func(*sessiondomain.RecordRequest)
		wantErr error
	}{
		{
			name:    "missing service type",
			mutate:  func(r *sessiondomain.RecordRequest) { r.ServiceTypeID = "" },
			wantErr: sessiondomain.ErrInvalidServiceType,
		},
		{
			name:    "unknown service type",
			mutate:  func(r *sessiondomain.RecordRequest) { r.ServiceTypeID = node.Generate().String() },
			wantErr: sessiondomain.ErrInvalidServiceType,
		},
		{
			name:    "missing user ref",
			mutate:  func(r *sessiondomain.RecordRequest) { r.UserRef = "  " },
			wantErr: sessiondomain.ErrInvalidUserRef,
		},
		{
			name:    "ended before started",
			mutate:  func(r *sessiondomain.RecordRequest) { r.EndedAt = r.StartedAt.Add(-time.Minute) },
			wantErr: sessiondomain.ErrInvalidTimeRange,
		},
		{
			name: "satisfaction out of range",
			mutate: func(r *sessiondomain.RecordRequest) {
				rating := int16(9)
				r.Satisfaction = &rating
			},
			wantErr: sessiondomain.ErrInvalidSatisfaction,
		},
		{
			name:    "negative revenue",
			mutate:  func(r *sessiondomain.RecordRequest) { r.RevenueMinor = -1 },
			wantErr: sessiondomain.ErrInvalidRevenue,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest(serviceTypeID, now)
			tc.mutate(&req)
			_, err := svc.Record(ctx, req)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestRecordIdempotencyKeyReturnsExistingRow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, db, node := newTestService(t, now)
	ctx := context.Background()

	serviceTypeID := seedServiceType(t, db, node)

	req := validRequest(serviceTypeID, now)
	req.IdempotencyKey = "evt-123"

	first, err := svc.Record(ctx, req)
	assert.NoError(t, err)

	req.RevenueMinor = 9999
	second, err := svc.Record(ctx, req)
	assert.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(2900), second.RevenueMinor)

	var count int64
	assert.NoError(t, db.Model(&sessiondomain.SessionRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRecordIdempotencyKeyConcurrentDuplicates(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, db, node := newTestService(t, now)
	ctx := context.Background()

	serviceTypeID := seedServiceType(t, db, node)

	req := validRequest(serviceTypeID, now)
	req.IdempotencyKey = "evt-race"

	records := make([]*sessiondomain.SessionRecord, 2)
	errs := make([]error, 2)

	var wg sync.WaitGroup
	for i := range records {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			records[i], errs[i] = svc.Record(ctx, req)
		}(i)
	}
	wg.Wait()

	// Whichever goroutine loses the insert race resolves to the winner's
	// row instead of erroring.
	for i := range errs {
		assert.NoError(t, errs[i], "record %d", i)
	}
	assert.Equal(t, records[0].ID, records[1].ID)

	var count int64
	assert.NoError(t, db.Model(&sessiondomain.SessionRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
