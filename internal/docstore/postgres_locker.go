package docstore

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/spec-kit/credit-ledger/pkg/util"
)

// PostgresLocker holds a session-level advisory lock on a dedicated pooled
// connection for as long as the collection is locked.
type PostgresLocker struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewPostgresLocker builds a locker over pool.
func NewPostgresLocker(pool *pgxpool.Pool, timeout time.Duration) *PostgresLocker {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	return &PostgresLocker{pool: pool, timeout: timeout}
}

func (l *PostgresLocker) Lock(ctx context.Context, collection string) (Unlock, error) {
	deadline := time.Now().Add(l.timeout)

	acquireCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()
	conn, err := l.pool.Acquire(acquireCtx)
	if err != nil {
		if acquireCtx.Err() != nil && ctx.Err() == nil {
			return nil, apperrors.NewLockTimeout(collection, err)
		}
		return nil, apperrors.NewStorageError("acquire lock connection", err)
	}

	err = pollUntil(ctx, collection, deadline, func() (bool, error) {
		var locked bool
		if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock(hashtext($1))`, collection).Scan(&locked); err != nil {
			return false, apperrors.NewStorageError("advisory lock "+collection, err)
		}
		return locked, nil
	})
	if err != nil {
		conn.Release()
		return nil, err
	}

	return onceUnlock(func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(releaseCtx, `SELECT pg_advisory_unlock(hashtext($1))`, collection); err != nil {
			// The session still holds the lock; drop the connection so the server frees it.
			_ = conn.Conn().Close(releaseCtx)
		}
		conn.Release()
	}), nil
}
