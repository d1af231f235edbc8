package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	adminkeydomain "github.com/nivala/pricing/internal/adminkey/domain"
	"github.com/nivala/pricing/internal/adminkey/repository"
	"github.com/nivala/pricing/internal/clock"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var fixtureSeq atomic.Int64

func newTestService(t *testing.T) (adminkeydomain.Service, *clock.FakeClock, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), fixtureSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&adminkeydomain.AdminAPIKey{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  repository.Provide(),
	})
	return svc, fake, db
}

func TestCreateThenVerify(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, raw, err := svc.Create(ctx, "ops")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if raw == "" {
		t.Fatal("want a raw secret")
	}

	key, err := svc.Verify(ctx, raw)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if key.ID != created.ID {
		t.Errorf("verified key id = %v, want %v", key.ID, created.ID)
	}
}

func TestVerifyRejectsUnknownKey(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.Create(ctx, "ops"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	for _, raw := range []string{"", "   ", "pk_wrong"} {
		if _, err := svc.Verify(ctx, raw); err != adminkeydomain.ErrUnauthorized {
			t.Errorf("Verify(%q) = %v, want ErrUnauthorized", raw, err)
		}
	}
}

func TestVerifyRejectsInactiveAndExpiredKeys(t *testing.T) {
	svc, fake, db := newTestService(t)
	ctx := context.Background()

	created, raw, err := svc.Create(ctx, "ops")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	expiry := fake.Now().Add(time.Hour)
	if err := db.Model(&adminkeydomain.AdminAPIKey{}).Where("id = ?", created.ID).Update("expires_at", expiry).Error; err != nil {
		t.Fatalf("set expiry: %v", err)
	}
	fake.Advance(2 * time.Hour)
	if _, err := svc.Verify(ctx, raw); err != adminkeydomain.ErrUnauthorized {
		t.Fatalf("Verify(expired) = %v, want ErrUnauthorized", err)
	}

	updates := map[string]any{"expires_at": nil, "is_active": false}
	if err := db.Model(&adminkeydomain.AdminAPIKey{}).Where("id = ?", created.ID).Updates(updates).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := svc.Verify(ctx, raw); err != adminkeydomain.ErrUnauthorized {
		t.Fatalf("Verify(inactive) = %v, want ErrUnauthorized", err)
	}
}

func TestCreateRequiresName(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, _, err := svc.Create(context.Background(), "  "); err != adminkeydomain.ErrInvalidName {
		t.Fatalf("Create(blank name) = %v, want ErrInvalidName", err)
	}
}
