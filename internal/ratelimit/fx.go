package ratelimit

import (
	"strings"

	"github.com/nivala/pricing/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

// ProvideRedis returns a client when an address is configured, nil
// otherwise. Consumers treat nil as "redis-backed features disabled".
func ProvideRedis(cfg config.Config) *redis.Client {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

var Module = fx.Module("rate.limit",
	fx.Provide(ProvideRedis),
	fx.Provide(NewLocker),
	fx.Provide(NewSessionIngestLimiter),
)
