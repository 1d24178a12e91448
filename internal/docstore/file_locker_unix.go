//go:build unix

package docstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	apperrors "github.com/spec-kit/credit-ledger/pkg/util"
)

// FileLocker takes an flock(2) advisory lock on <dir>/<collection>.lock so that
// several processes sharing the data directory serialize their writers.
type FileLocker struct {
	dir     string
	timeout time.Duration
	local   *MutexLocker
}

// NewFileLocker creates dir if needed.
func NewFileLocker(dir string, timeout time.Duration) (*FileLocker, error) {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory %s: %w", dir, err)
	}
	return &FileLocker{dir: dir, timeout: timeout, local: NewMutexLocker(timeout)}, nil
}

func (l *FileLocker) Lock(ctx context.Context, collection string) (Unlock, error) {
	if err := validateName(collection); err != nil {
		return nil, err
	}
	deadline := time.Now().Add(l.timeout)

	// Goroutines of this process queue on the mutex instead of spinning on flock.
	releaseLocal, err := l.local.Lock(ctx, collection)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(filepath.Join(l.dir, collection+".lock"), os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		releaseLocal()
		return nil, apperrors.NewStorageError("open lock "+collection, err)
	}
	fd := int(f.Fd())

	err = pollUntil(ctx, collection, deadline, func() (bool, error) {
		err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return true, nil
		}
		if errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EINTR) {
			return false, nil
		}
		return false, apperrors.NewStorageError("flock "+collection, err)
	})
	if err != nil {
		f.Close()
		releaseLocal()
		return nil, err
	}

	return onceUnlock(func() {
		_ = unix.Flock(fd, unix.LOCK_UN)
		f.Close()
		releaseLocal()
	}), nil
}
