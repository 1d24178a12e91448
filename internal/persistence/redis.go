package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/credit-ledger/internal/config"
)

const redisConnectTimeout = 5 * time.Second

// Redis holds the client backing the cross-process collection locks.
type Redis struct {
	Client *redis.Client
	prefix string
}

// NewRedis connects and verifies the server answers before any lock is taken.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: redisConnectTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("connected to redis",
		zap.String("addr", cfg.Addr),
		zap.Int("db", cfg.DB),
		zap.String("lock_prefix", cfg.LockPrefix),
	)
	return &Redis{Client: client, prefix: cfg.LockPrefix}, nil
}

// LockPrefix is the key namespace used for collection leases.
func (r *Redis) LockPrefix() string {
	if r == nil {
		return ""
	}
	return r.prefix
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}
