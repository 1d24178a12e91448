package docstore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	apperrors "github.com/spec-kit/credit-ledger/pkg/util"
)

// DefaultLockTimeout bounds how long a writer waits for a collection.
const DefaultLockTimeout = 5 * time.Second

const lockPollInterval = 10 * time.Millisecond

var errLockWaitExpired = errors.New("lock wait expired")

// Unlock releases a held lock. Calling it more than once is harmless.
type Unlock func()

// Locker grants one writer at a time per collection. Lock waits a bounded time
// and then fails with a retryable LockTimeout error.
type Locker interface {
	Lock(ctx context.Context, collection string) (Unlock, error)
}

// LockAll acquires every named collection in sorted order, so concurrent
// multi-collection writers cannot deadlock.
func LockAll(ctx context.Context, locker Locker, collections ...string) (Unlock, error) {
	names := append([]string(nil), collections...)
	sort.Strings(names)

	held := make([]Unlock, 0, len(names))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i]()
		}
	}

	var prev string
	for i, name := range names {
		if i > 0 && name == prev {
			continue
		}
		prev = name
		unlock, err := locker.Lock(ctx, name)
		if err != nil {
			release()
			return nil, err
		}
		held = append(held, unlock)
	}
	return onceUnlock(release), nil
}

func onceUnlock(fn func()) Unlock {
	var once sync.Once
	return func() { once.Do(fn) }
}

// pollUntil retries try until it reports success, the deadline passes or ctx ends.
func pollUntil(ctx context.Context, collection string, deadline time.Time, try func() (bool, error)) error {
	for {
		ok, err := try()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if !time.Now().Before(deadline) {
			return apperrors.NewLockTimeout(collection, errLockWaitExpired)
		}
		timer := time.NewTimer(lockPollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// MutexLocker serializes writers inside one process.
type MutexLocker struct {
	timeout time.Duration

	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewMutexLocker returns a locker that waits at most timeout per acquisition.
func NewMutexLocker(timeout time.Duration) *MutexLocker {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	return &MutexLocker{timeout: timeout, slots: make(map[string]chan struct{})}
}

func (l *MutexLocker) slot(collection string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[collection]
	if !ok {
		s = make(chan struct{}, 1)
		l.slots[collection] = s
	}
	return s
}

func (l *MutexLocker) Lock(ctx context.Context, collection string) (Unlock, error) {
	slot := l.slot(collection)

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case slot <- struct{}{}:
		return onceUnlock(func() { <-slot }), nil
	case <-timer.C:
		return nil, apperrors.NewLockTimeout(collection, errLockWaitExpired)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
