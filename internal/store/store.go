// Package store persists small serialized documents such as the field code
// registry and the region index. Two backends exist: a directory of plain files,
// which users can inspect and edit, and an embedded Badger database.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"

	domainerrors "github.com/GetThruTools/ThruText-API/internal/errors"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
)

// Cache stores single serialized documents by key. A missing key is reported
// as found == false with a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, found bool, err error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	io.Closer
}

// Open opens the cache backend named by backend at path.
func Open(backend, path string, logger *slog.Logger) (Cache, error) {
	switch backend {
	case BackendFile, "":
		return NewFileCache(path, logger)
	case BackendBadger:
		return New(path, logger)
	default:
		return nil, domainerrors.Validationf("unknown cache backend %q", backend)
	}
}

// cachePrefix namespaces cached documents inside the database.
const cachePrefix = "cache:"

func cacheKey(key string) []byte {
	return []byte(cachePrefix + key)
}

// Store is a Cache backed by Badger.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// New opens (or creates) a Badger database at path.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// Get returns the document stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	k := cacheKey(key)

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return data, true, nil
}

// Put stores data under key, replacing any previous document.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	k := cacheKey(key)

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(k, data)
	})
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	k := cacheKey(key)

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(k)
	})
}

// Keys lists the stored document keys, sorted.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(cachePrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			keys = append(keys, strings.TrimPrefix(string(it.Item().Key()), cachePrefix))
		}
		return nil
	})
	return keys, err
}
