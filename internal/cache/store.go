package cache

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"leaguetrades/internal/config"
)

// Store is a small byte cache used for read-side trade counts.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// New picks the backend from config. A redis backend without an address falls back to memory.
func New(cfg config.CacheConfig, rcfg config.RedisConfig, logger *zap.Logger) Store {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "redis":
		if strings.TrimSpace(rcfg.Addr) == "" {
			if logger != nil {
				logger.Warn("cache backend is redis but redis.addr is empty; falling back to memory")
			}
			return NewMemoryStore()
		}
		return NewRedisStore(&redis.Options{
			Addr:     rcfg.Addr,
			Password: rcfg.Password,
			DB:       rcfg.DB,
		})
	default:
		return NewMemoryStore()
	}
}
