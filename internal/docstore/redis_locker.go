package docstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apperrors "github.com/spec-kit/credit-ledger/pkg/util"
)

// releaseScript deletes the lock key only while it still carries our token, so an
// expired lease taken over by another writer is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// RedisLocker holds a SET NX PX lease per collection, for deployments where
// several processes share one store.
type RedisLocker struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
	lease   time.Duration
}

// NewRedisLocker builds a locker; lease bounds how long a crashed holder can block others.
func NewRedisLocker(client *redis.Client, prefix string, timeout, lease time.Duration) *RedisLocker {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	if lease <= 0 {
		lease = 30 * time.Second
	}
	return &RedisLocker{client: client, prefix: prefix, timeout: timeout, lease: lease}
}

func (l *RedisLocker) Lock(ctx context.Context, collection string) (Unlock, error) {
	key := l.prefix + collection
	token := uuid.NewString()
	deadline := time.Now().Add(l.timeout)

	err := pollUntil(ctx, collection, deadline, func() (bool, error) {
		ok, err := l.client.SetNX(ctx, key, token, l.lease).Result()
		if err != nil {
			return false, apperrors.NewStorageError("redis lock "+collection, err)
		}
		return ok, nil
	})
	if err != nil {
		return nil, err
	}

	return onceUnlock(func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
	}), nil
}
