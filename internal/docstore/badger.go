package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const badgerKeyPrefix = "doc:"

// BadgerStore keeps documents in an embedded Badger database.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore wraps an open database.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func (s *BadgerStore) Read(_ context.Context, collection string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerKeyPrefix + collection))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", collection, err)
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *BadgerStore) Write(_ context.Context, collection string, data []byte) error {
	if err := validateName(collection); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(badgerKeyPrefix+collection), data); err != nil {
			return fmt.Errorf("set %s: %w", collection, err)
		}
		return nil
	})
}
