//go:build !unix

package docstore

import (
	"context"
	"errors"
	"time"
)

// FileLocker is only available on unix platforms.
type FileLocker struct{}

// NewFileLocker reports that advisory file locks are unsupported here.
func NewFileLocker(string, time.Duration) (*FileLocker, error) {
	return nil, errors.New("file locking requires a unix platform; use LOCK_BACKEND=mutex")
}

func (l *FileLocker) Lock(context.Context, string) (Unlock, error) {
	return nil, errors.New("file locking unsupported")
}
