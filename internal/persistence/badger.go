package persistence

import (
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// OpenBadger opens the embedded database under dataDir/badger.
func OpenBadger(dataDir string, logger *zap.Logger) (*badger.DB, error) {
	dir := filepath.Join(dataDir, "badger")
	opts := badger.DefaultOptions(dir).WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dir, err)
	}

	logger.Info("opened badger store", zap.String("dir", dir))
	return db, nil
}
