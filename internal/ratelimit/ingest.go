package ratelimit

import (
	"context"
	"fmt"
	"strings"

	"github.com/nivala/pricing/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const (
	keySessionIngestUser   = "sessions:ingest:user:%s"
	keySessionIngestGlobal = "sessions:ingest:global"
)

// SessionIngestLimiter throttles the session ingest endpoint per user ref
// and globally. A nil limiter allows everything, so deployments without
// redis keep working.
type SessionIngestLimiter struct {
	enabled bool

	bucket *TokenBucket

	userRate    float64
	userBurst   int
	globalRate  float64
	globalBurst int
}

func NewSessionIngestLimiter(cfg config.Config, client *redis.Client) *SessionIngestLimiter {
	if !cfg.RateLimitEnabled || client == nil {
		return nil
	}
	return &SessionIngestLimiter{
		enabled:     true,
		bucket:      NewTokenBucket(client),
		userRate:    cfg.IngestUserRate,
		userBurst:   cfg.IngestUserBurst,
		globalRate:  cfg.IngestGlobalRate,
		globalBurst: cfg.IngestGlobalBurst,
	}
}

func (l *SessionIngestLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *SessionIngestLimiter) AllowUser(ctx context.Context, userRef string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	res, err := l.bucket.Allow(ctx, fmt.Sprintf(keySessionIngestUser, strings.TrimSpace(userRef)), l.userRate, l.userBurst)
	if err != nil {
		return false, err
	}
	return res.Allowed, nil
}

func (l *SessionIngestLimiter) AllowGlobal(ctx context.Context) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	res, err := l.bucket.Allow(ctx, keySessionIngestGlobal, l.globalRate, l.globalBurst)
	if err != nil {
		return false, err
	}
	return res.Allowed, nil
}
