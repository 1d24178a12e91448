package docstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps each collection in <dir>/<collection>.json.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the data directory.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(collection string) string {
	return filepath.Join(s.dir, collection+".json")
}

func (s *FileStore) Read(_ context.Context, collection string) ([]byte, error) {
	if err := validateName(collection); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(collection))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", collection, err)
	}
	return data, nil
}

// Write stages the document in a temp file and renames it over the old one.
func (s *FileStore) Write(_ context.Context, collection string, data []byte) error {
	if err := validateName(collection); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(s.dir, collection+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", collection, err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing %s: %w", collection, err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("syncing %s: %w", collection, err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file for %s: %w", collection, err)
	}
	if err := os.Rename(tmpPath, s.path(collection)); err != nil {
		return fmt.Errorf("renaming %s into place: %w", collection, err)
	}

	success = true
	return nil
}
