// Package docstore persists named collections as whole documents. A collection is
// read and written as a unit; writers serialize through a Locker so that every
// read-modify-write cycle observes the result of the previous one.
package docstore

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	apperrors "github.com/spec-kit/credit-ledger/pkg/util"
)

// Store reads and replaces whole collection documents.
type Store interface {
	// Read returns the stored document, or nil if the collection was never written.
	Read(ctx context.Context, collection string) ([]byte, error)
	// Write replaces the document in one step; readers never observe a partial write.
	Write(ctx context.Context, collection string, data []byte) error
}

// Collection is a typed list of records stored under one name.
type Collection[T any] struct {
	name   string
	store  Store
	locker Locker
}

// NewCollection binds a record type to a named collection.
func NewCollection[T any](name string, store Store, locker Locker) *Collection[T] {
	return &Collection[T]{name: name, store: store, locker: locker}
}

// Name returns the collection name.
func (c *Collection[T]) Name() string {
	return c.name
}

// Locker returns the locker guarding this collection.
func (c *Collection[T]) Locker() Locker {
	return c.locker
}

// Load returns all records; an absent collection is an empty list.
func (c *Collection[T]) Load(ctx context.Context) ([]T, error) {
	data, err := c.store.Read(ctx, c.name)
	if err != nil {
		return nil, apperrors.NewStorageError("read "+c.name, err)
	}
	records := []T{}
	if len(bytes.TrimSpace(data)) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, apperrors.NewStorageError("decode "+c.name, err)
	}
	if records == nil {
		records = []T{}
	}
	return records, nil
}

// Save replaces the collection with records.
func (c *Collection[T]) Save(ctx context.Context, records []T) error {
	if records == nil {
		records = []T{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return apperrors.NewStorageError("encode "+c.name, err)
	}
	if err := c.store.Write(ctx, c.name, data); err != nil {
		return apperrors.NewStorageError("write "+c.name, err)
	}
	return nil
}

// Update applies fn under the collection lock. The slice fn returns is persisted
// only when fn succeeds, so a rejected mutation leaves the stored collection untouched.
func (c *Collection[T]) Update(ctx context.Context, fn func([]T) ([]T, error)) error {
	unlock, err := c.locker.Lock(ctx, c.name)
	if err != nil {
		return err
	}
	defer unlock()
	return c.UpdateLocked(ctx, fn)
}

// UpdateLocked is Update for callers that already hold the collection lock.
func (c *Collection[T]) UpdateLocked(ctx context.Context, fn func([]T) ([]T, error)) error {
	records, err := c.Load(ctx)
	if err != nil {
		return err
	}
	updated, err := fn(records)
	if err != nil {
		return err
	}
	return c.Save(ctx, updated)
}

// Document is a single object stored under one name.
type Document[T any] struct {
	name     string
	store    Store
	locker   Locker
	fallback func() T
}

// NewDocument binds a type to a named document; fallback supplies the value of a
// document that was never written.
func NewDocument[T any](name string, store Store, locker Locker, fallback func() T) *Document[T] {
	return &Document[T]{name: name, store: store, locker: locker, fallback: fallback}
}

// Load returns the stored value or the fallback.
func (d *Document[T]) Load(ctx context.Context) (T, error) {
	value := d.fallback()
	data, err := d.store.Read(ctx, d.name)
	if err != nil {
		return value, apperrors.NewStorageError("read "+d.name, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return value, nil
	}
	if err := json.Unmarshal(data, &value); err != nil {
		return d.fallback(), apperrors.NewStorageError("decode "+d.name, err)
	}
	return value, nil
}

// Update applies fn to the current value under the document lock and persists it.
func (d *Document[T]) Update(ctx context.Context, fn func(*T) error) (T, error) {
	var zero T
	unlock, err := d.locker.Lock(ctx, d.name)
	if err != nil {
		return zero, err
	}
	defer unlock()

	value, err := d.Load(ctx)
	if err != nil {
		return zero, err
	}
	if err := fn(&value); err != nil {
		return zero, err
	}
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return zero, apperrors.NewStorageError("encode "+d.name, err)
	}
	if err := d.store.Write(ctx, d.name, data); err != nil {
		return zero, apperrors.NewStorageError("write "+d.name, err)
	}
	return value, nil
}

func validateName(collection string) error {
	if collection == "" || strings.HasPrefix(collection, ".") || strings.ContainsAny(collection, `/\`) {
		return fmt.Errorf("invalid collection name %q", collection)
	}
	return nil
}
